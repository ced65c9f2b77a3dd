package gxdraw

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/gogpu/gxdraw/texconv"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func (m *mockDevice) released(id BufferID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.releases, id)
}

func newPacedMock() *mockDevice {
	return &mockDevice{vsync: time.Millisecond}
}

func TestNewRenderer(t *testing.T) {
	if _, err := NewRenderer(nil); !errors.Is(err, ErrNoDevice) {
		t.Errorf("NewRenderer(nil) error = %v, want ErrNoDevice", err)
	}

	initErr := errors.New("no adapter")
	if _, err := NewRenderer(&mockDevice{initErr: initErr}); !errors.Is(err, initErr) {
		t.Errorf("NewRenderer() error = %v, want wrapped init error", err)
	}

	dev := newPacedMock()
	r, err := NewRenderer(dev)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	defer r.Close()
	if !dev.Ready() {
		t.Error("device not initialized")
	}
	if r.Device() != dev {
		t.Error("Device() returned a different device")
	}
	if r.Running() {
		t.Error("drawer running before WindowDraw")
	}
}

func TestRenderer_StartStop(t *testing.T) {
	dev := newPacedMock()
	r, err := NewRenderer(dev)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	tex := solidARGB(4, 4, 0xFF00FF00)
	win := NewWindow(64, 64)
	win.Primitives.Replace([]Primitive{TexturedQuad(Rect{0, 0, 4, 4}, tex, White, BlendAlpha)})

	if err := r.WindowDraw(win); err != nil {
		t.Fatalf("WindowDraw() error = %v", err)
	}
	// A second call only swaps the window.
	if err := r.WindowDraw(win); err != nil {
		t.Fatalf("WindowDraw() error = %v", err)
	}
	waitFor(t, "frames", func() bool { return r.Frames() >= 3 })

	r.WindowDestroy()
	if r.Running() {
		t.Fatal("drawer still running after WindowDestroy")
	}
	if !dev.released(tex.ID) {
		t.Error("persistent texture not released on drawer exit")
	}
	if !dev.released(BlankTextureID) {
		t.Error("blank texture not released on drawer exit")
	}
	if s := r.CacheStats(); s.PersistentLen != 0 || s.Conversions != 1 {
		t.Errorf("CacheStats() = %+v, want empty pool after one conversion", s)
	}
	if s := r.LastFrame(); s.Drawn != 1 {
		t.Errorf("LastFrame().Drawn = %d, want 1", s.Drawn)
	}

	// Restart after a stop.
	frames := r.Frames()
	if err := r.WindowDraw(win); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "restart", func() bool { return r.Frames() > frames })
	r.WindowDestroy()
	r.WindowDestroy()
}

func TestRenderer_WindowDrawErrors(t *testing.T) {
	r, err := NewRenderer(newPacedMock())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.WindowDraw(nil); !errors.Is(err, ErrNoWindow) {
		t.Errorf("WindowDraw(nil) error = %v, want ErrNoWindow", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := r.WindowDraw(NewWindow(8, 8)); !errors.Is(err, ErrClosed) {
		t.Errorf("WindowDraw() after Close error = %v, want ErrClosed", err)
	}
}

func TestRenderer_ClearAllTexturesWhileDrawing(t *testing.T) {
	dev := newPacedMock()
	r, err := NewRenderer(dev)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	tex := solidARGB(4, 4, 0xFFFFFFFF)
	win := NewWindow(64, 64)
	win.Primitives.Replace([]Primitive{TexturedQuad(Rect{0, 0, 4, 4}, tex, White, BlendAlpha)})
	if err := r.WindowDraw(win); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first frame", func() bool { return r.Frames() >= 1 })

	r.ClearAllTextures()
	waitFor(t, "release", func() bool { return dev.released(tex.ID) })
	r.WindowDestroy()

	// The drawer converted the buffer again after the clear.
	if got := r.CacheStats().Conversions; got != 2 {
		t.Errorf("Conversions = %d, want 2", got)
	}
}

func TestRenderer_InvalidateWithoutDrawer(t *testing.T) {
	dev := newPacedMock()
	r, err := NewRenderer(dev)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	buf := solidARGB(4, 4, 0xFFFFFFFF)
	if _, err := r.cache.GetOrCreate(buf, false); err != nil {
		t.Fatal(err)
	}
	r.InvalidateTexture(buf.ID)
	if n := r.CacheStats().PersistentLen; n != 0 {
		t.Errorf("PersistentLen = %d after InvalidateTexture, want 0", n)
	}

	if _, err := r.cache.GetOrCreate(buf, false); err != nil {
		t.Fatal(err)
	}
	r.ClearAllTextures()
	if n := r.CacheStats().PersistentLen; n != 0 {
		t.Errorf("PersistentLen = %d after ClearAllTextures, want 0", n)
	}
}

func TestRenderer_ConversionWorkers(t *testing.T) {
	dev := newPacedMock()
	r, err := NewRenderer(dev, WithConversionWorkers(4))
	if err != nil {
		t.Fatal(err)
	}
	if r.pool == nil || r.pool.Workers() != 4 {
		t.Fatal("conversion pool not created")
	}

	buf := solidARGB(64, 64, 0xFF336699)
	tex, err := r.cache.GetOrCreate(buf, false)
	if err != nil {
		t.Fatal(err)
	}
	serial, err := texconv.Convert(&buf.Source)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(tex.Data, serial.Data) {
		t.Error("pooled conversion differs from serial conversion")
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRenderer_IdleUntilChanged(t *testing.T) {
	dev := newPacedMock()
	r, err := NewRenderer(dev, WithRedrawPolicy(IdleUntilChanged))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	win := NewWindow(32, 32)
	win.Primitives.Replace([]Primitive{Quad(Rect{0, 0, 4, 4}, White, BlendAlpha)})
	if err := r.WindowDraw(win); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first frame", func() bool { return r.Frames() == 1 })
	waitFor(t, "idle vsyncs", func() bool { return dev.vsyncCount() >= 5 })
	if got := r.Frames(); got != 1 {
		t.Errorf("Frames() = %d while unchanged, want 1", got)
	}

	win.Primitives.Replace([]Primitive{Quad(Rect{0, 0, 8, 8}, White, BlendAlpha)})
	waitFor(t, "redraw", func() bool { return r.Frames() == 2 })
}

func TestRenderer_RetriesUntilReady(t *testing.T) {
	dev := newPacedMock()
	r, err := NewRenderer(dev, WithRetryInterval(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	dev.setReady(false)

	if err := r.WindowDraw(NewWindow(16, 16)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if got := r.Frames(); got != 0 {
		t.Fatalf("Frames() = %d before device ready, want 0", got)
	}
	dev.setReady(true)
	waitFor(t, "frame after ready", func() bool { return r.Frames() >= 1 })
}

func TestRenderer_XYToRenderTarget(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		x, y   int
		wantX  int
		wantY  int
		wantOK bool
	}{
		{"origin", nil, 160, 120, 0, 0, true},
		{"left of blit", nil, 159, 120, 0, 0, false},
		{"above blit", nil, 200, 119, 0, 0, false},
		{"last pixel", nil, 479, 359, 319, 239, true},
		{"right of blit", nil, 480, 200, 0, 0, false},
		{"below blit", nil, 200, 360, 0, 0, false},
		{"scaled", []Option{WithScaleMode(scaleModes[5])}, 170, 130, 20, 10, true},
		{"hardware override", []Option{WithScaleMode(scaleModes[2]), WithHardwareScale(160, 120)}, 170, 130, 5, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithCenter(true, true)}, tt.opts...)
			r, err := NewRenderer(newPacedMock(), opts...)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()

			win := NewWindow(640, 480)
			win.BlitWidth, win.BlitHeight = 320, 240
			if err := r.WindowDraw(win); err != nil {
				t.Fatal(err)
			}
			waitFor(t, "frame", func() bool { return r.Frames() >= 1 })

			x, y, ok := r.XYToRenderTarget(tt.x, tt.y)
			if ok != tt.wantOK || x != tt.wantX || y != tt.wantY {
				t.Errorf("XYToRenderTarget(%d,%d) = (%d,%d,%v), want (%d,%d,%v)",
					tt.x, tt.y, x, y, ok, tt.wantX, tt.wantY, tt.wantOK)
			}
		})
	}
}

func TestRenderer_XYWithoutWindow(t *testing.T) {
	r, err := NewRenderer(newPacedMock())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, _, ok := r.XYToRenderTarget(0, 0); ok {
		t.Error("XYToRenderTarget() ok without a window")
	}
}

func TestRenderer_LogsLifecycle(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	dev := newPacedMock()
	r, err := NewRenderer(dev)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.WindowDraw(NewWindow(8, 8)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame", func() bool { return r.Frames() >= 1 })
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	for _, msg := range []string{"renderer created", "drawer started", "drawer stopped"} {
		if !bytes.Contains(buf.Bytes(), []byte(msg)) {
			t.Errorf("log output lacks %q:\n%s", msg, buf.String())
		}
	}
}
