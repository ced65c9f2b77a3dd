package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gxdraw"
)

// stubDevice is a no-op gxdraw.Device with a configurable Init result.
type stubDevice struct {
	name    string
	initErr error
	inited  bool
	closed  bool
}

func (s *stubDevice) Name() string { return s.name }
func (s *stubDevice) Ready() bool { return s.inited }
func (s *stubDevice) SetBlendMode(gxdraw.BlendMode) {}
func (s *stubDevice) UploadTexture(*gxdraw.Texture) error { return nil }
func (s *stubDevice) ReleaseTexture(*gxdraw.Texture) {}
func (s *stubDevice) BindTexture(*gxdraw.Texture) {}
func (s *stubDevice) DrawLine([2]gxdraw.Vertex, float32) {}
func (s *stubDevice) DrawQuad([4]gxdraw.Vertex) {}
func (s *stubDevice) DrawDone() {}
func (s *stubDevice) CopyDisplay(int) {}
func (s *stubDevice) WaitVSync() error { return nil }
func (s *stubDevice) Close() error { s.closed = true; return nil }
func (s *stubDevice) Init(gxdraw.DisplayMode) error {
	if s.initErr != nil {
		return s.initErr
	}
	s.inited = true
	return nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	// Software device is auto-registered via init()
	if !IsRegistered(BackendSoftware) {
		t.Fatal("software device should be auto-registered")
	}

	d := Get(BackendSoftware)
	if d == nil {
		t.Fatal("Get(software) returned nil")
	}
	if d.Name() != BackendSoftware {
		t.Errorf("Name() = %q, want %q", d.Name(), BackendSoftware)
	}
	if Get(BackendSoftware) == d {
		t.Error("Get returned the same instance twice")
	}

	if Get("nonexistent") != nil {
		t.Error("Get(nonexistent) should return nil")
	}
}

func TestRegistryRegisterUnregister(t *testing.T) {
	Register("custom", func() gxdraw.Device { return &stubDevice{name: "custom"} })
	t.Cleanup(func() { Unregister("custom") })

	if !IsRegistered("custom") {
		t.Fatal("custom device not registered")
	}
	if !slices.Contains(Available(), "custom") {
		t.Errorf("Available() = %v, missing custom", Available())
	}
	if !slices.IsSorted(Available()) {
		t.Errorf("Available() = %v, not sorted", Available())
	}

	Unregister("custom")
	if IsRegistered("custom") {
		t.Error("custom device still registered after Unregister")
	}
}

func TestRegistryDefaultPriority(t *testing.T) {
	if d := Default(); d == nil || d.Name() != BackendSoftware {
		t.Fatalf("Default() = %v, want software", d)
	}

	Register(BackendWGPU, func() gxdraw.Device { return &stubDevice{name: BackendWGPU} })
	t.Cleanup(func() { Unregister(BackendWGPU) })

	if d := Default(); d.Name() != BackendWGPU {
		t.Errorf("Default() = %q, want %q", d.Name(), BackendWGPU)
	}
	if d := MustDefault(); d.Name() != BackendWGPU {
		t.Errorf("MustDefault() = %q, want %q", d.Name(), BackendWGPU)
	}
}

func TestRegistryDefaultFallback(t *testing.T) {
	saved := factories[BackendSoftware]
	Unregister(BackendSoftware)
	t.Cleanup(func() { Register(BackendSoftware, saved) })

	if d := Default(); d != nil {
		t.Fatalf("Default() with empty registry = %v, want nil", d)
	}
	if _, err := InitDefault(gxdraw.DefaultDisplayMode); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("InitDefault() error = %v, want ErrBackendNotAvailable", err)
	}

	Register("zeta", func() gxdraw.Device { return &stubDevice{name: "zeta"} })
	Register("alpha", func() gxdraw.Device { return &stubDevice{name: "alpha"} })
	t.Cleanup(func() {
		Unregister("zeta")
		Unregister("alpha")
	})
	if d := Default(); d == nil || d.Name() != "alpha" {
		t.Errorf("Default() = %v, want alpha", d)
	}
}

func TestMustDefaultPanics(t *testing.T) {
	saved := factories[BackendSoftware]
	Unregister(BackendSoftware)
	t.Cleanup(func() { Register(BackendSoftware, saved) })

	defer func() {
		if recover() == nil {
			t.Error("MustDefault() did not panic with an empty registry")
		}
	}()
	MustDefault()
}

func TestInitDefaultFallsBack(t *testing.T) {
	failing := &stubDevice{name: BackendWGPU, initErr: errors.New("no adapter")}
	Register(BackendWGPU, func() gxdraw.Device { return failing })
	t.Cleanup(func() { Unregister(BackendWGPU) })

	d, err := InitDefault(gxdraw.DisplayMode{Width: 16, Height: 16})
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	defer d.Close()

	if d.Name() != BackendSoftware {
		t.Errorf("InitDefault() = %q, want software", d.Name())
	}
	if !d.Ready() {
		t.Error("InitDefault() returned a device that is not ready")
	}
	if !failing.closed {
		t.Error("failed device was not closed")
	}
}

func TestInitDefaultAllFail(t *testing.T) {
	saved := factories[BackendSoftware]
	initErr := errors.New("boom")
	Register(BackendSoftware, func() gxdraw.Device { return &stubDevice{name: BackendSoftware, initErr: initErr} })
	t.Cleanup(func() { Register(BackendSoftware, saved) })

	if _, err := InitDefault(gxdraw.DefaultDisplayMode); !errors.Is(err, initErr) {
		t.Errorf("InitDefault() error = %v, want %v", err, initErr)
	}
}
