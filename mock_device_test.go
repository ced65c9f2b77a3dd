package gxdraw

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// mockDevice records every call made by the dispatcher.
type mockDevice struct {
	mu sync.Mutex

	notReady  bool
	initErr   error
	uploadErr error
	vsyncErr  error
	vsync     time.Duration

	inited   bool
	closed   bool
	calls    []string
	blends   []BlendMode
	binds    []BufferID
	lines    [][2]Vertex
	quads    [][4]Vertex
	uploads  []BufferID
	releases []BufferID
	copies   []int
	vsyncs   int
	logger   *slog.Logger

	// onDraw runs on every DrawLine and DrawQuad, outside mu.
	onDraw func()
}

func (m *mockDevice) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *mockDevice) Name() string { return "mock" }

func (m *mockDevice) Init(DisplayMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initErr != nil {
		return m.initErr
	}
	m.inited = true
	return nil
}

func (m *mockDevice) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inited && !m.notReady
}

func (m *mockDevice) setReady(ready bool) {
	m.mu.Lock()
	m.notReady = !ready
	m.mu.Unlock()
}

func (m *mockDevice) SetBlendMode(b BlendMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blends = append(m.blends, b)
	m.record("blend %s", b)
}

func (m *mockDevice) UploadTexture(tex *Texture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil && tex.ID != BlankTextureID {
		return m.uploadErr
	}
	m.uploads = append(m.uploads, tex.ID)
	tex.Handle = tex.ID
	return nil
}

func (m *mockDevice) ReleaseTexture(tex *Texture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases = append(m.releases, tex.ID)
}

func (m *mockDevice) BindTexture(tex *Texture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binds = append(m.binds, tex.ID)
	if tex.ID == BlankTextureID {
		m.record("bind blank")
	} else {
		m.record("bind %d", tex.ID)
	}
}

func (m *mockDevice) DrawLine(v [2]Vertex, width float32) {
	if m.onDraw != nil {
		m.onDraw()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, v)
	m.record("line")
}

func (m *mockDevice) DrawQuad(v [4]Vertex) {
	if m.onDraw != nil {
		m.onDraw()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quads = append(m.quads, v)
	m.record("quad")
}

func (m *mockDevice) DrawDone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("done")
}

func (m *mockDevice) CopyDisplay(fb int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.copies = append(m.copies, fb)
	m.record("copy %d", fb)
}

func (m *mockDevice) WaitVSync() error {
	m.mu.Lock()
	m.vsyncs++
	err, d := m.vsyncErr, m.vsync
	m.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
	return err
}

func (m *mockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("mock: closed twice")
	}
	m.closed = true
	return nil
}

func (m *mockDevice) SetLogger(l *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = l
}

func (m *mockDevice) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.blends = nil
	m.binds = nil
	m.lines = nil
	m.quads = nil
	m.copies = nil
}

func (m *mockDevice) snapshotCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockDevice) vsyncCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vsyncs
}

func (m *mockDevice) releaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.releases)
}

func newReadyMock() *mockDevice {
	return &mockDevice{inited: true}
}
