package gxdraw

import (
	"fmt"
	"sync/atomic"
	"time"
)

// DispatcherState is the state of the frame state machine.
type DispatcherState int32

// Dispatcher states.
const (
	// StateIdle means no frame is in flight.
	StateIdle DispatcherState = iota
	// StateDrawing means a primitive list is being walked.
	StateDrawing
)

// String returns the state name.
func (s DispatcherState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	}
	return fmt.Sprintf("DispatcherState(%d)", int32(s))
}

// DispatchConfig controls frame placement.
type DispatchConfig struct {
	// CenterH and CenterV center the blit area inside the window when it
	// fits.
	CenterH bool
	CenterV bool

	// SafeArea is the fraction of the window kept clear of overscan, in
	// (0, 1]. Zero means 1.
	SafeArea float64
}

// FrameStats describes one dispatched frame.
type FrameStats struct {
	Primitives   int
	Drawn        int
	Skipped      int
	BlendChanges int
	TextureBinds int
	Conversions  int

	// Framebuffer is the index the frame was copied to.
	Framebuffer int

	Duration time.Duration
}

// Dispatcher draws one primitive list per call against a Device.
//
// Blend state persists across frames and starts as BlendAlpha. SetBlendMode
// is called only when a primitive's mode differs from the current state, so
// a frame makes one call per adjacent change plus one when its first mode
// differs from the state left by the previous frame.
//
// Dispatcher is driven by a single goroutine. LastOffsets and State may be
// read concurrently.
type Dispatcher struct {
	dev   Device
	cache *TextureCache
	cfg   DispatchConfig
	blank *Texture

	blend BlendMode
	fb    int

	state    atomic.Int32
	lastHofs atomic.Int32
	lastVofs atomic.Int32
}

// NewDispatcher creates a dispatcher drawing to dev with textures from
// cache. The device is assumed to be in its post-Init blend state,
// BlendAlpha, so the first frame calls SetBlendMode before its first
// primitive unless that primitive blends with BlendAlpha.
func NewDispatcher(dev Device, cache *TextureCache, cfg DispatchConfig) *Dispatcher {
	if cfg.SafeArea <= 0 || cfg.SafeArea > 1 {
		cfg.SafeArea = 1
	}
	return &Dispatcher{
		dev:   dev,
		cache: cache,
		cfg:   cfg,
		blank: newBlankTexture(),
		blend: BlendAlpha,
	}
}

// State returns the current state.
func (d *Dispatcher) State() DispatcherState {
	return DispatcherState(d.state.Load())
}

// Framebuffer returns the index of the framebuffer shown last.
func (d *Dispatcher) Framebuffer() int {
	return d.fb
}

// LastOffsets returns the centering offsets of the last frame, without the
// safe-area shift.
func (d *Dispatcher) LastOffsets() (hofs, vofs int) {
	return int(d.lastHofs.Load()), int(d.lastVofs.Load())
}

// DrawFrame runs one Idle -> Drawing -> Idle cycle for win.
//
// It returns ErrBackendNotReady without touching the device when the device
// has not finished setup. Per-primitive failures are absorbed and counted
// in FrameStats.Skipped. A vsync failure is returned after the frame was
// shown.
func (d *Dispatcher) DrawFrame(win *Window) (FrameStats, error) {
	var stats FrameStats
	if win == nil {
		return stats, ErrNoWindow
	}
	if !d.dev.Ready() {
		return stats, ErrBackendNotReady
	}

	start := time.Now()
	d.state.Store(int32(StateDrawing))
	defer d.state.Store(int32(StateIdle))

	if err := d.cache.Upload(d.blank); err != nil {
		return stats, err
	}
	conversions := d.cache.Conversions()

	hofs, vofs := d.offsets(win)
	if list := win.Primitives; list != nil {
		list.Lock()
		prims := list.Primitives()
		stats.Primitives = len(prims)
		for i := range prims {
			d.drawPrimitive(&prims[i], hofs, vofs, &stats)
		}
		list.Unlock()
	}

	d.dev.DrawDone()
	d.fb ^= 1
	d.dev.CopyDisplay(d.fb)
	stats.Framebuffer = d.fb
	stats.Conversions = int(d.cache.Conversions() - conversions)

	var err error
	if verr := d.dev.WaitVSync(); verr != nil {
		err = fmt.Errorf("gxdraw: vsync: %w", verr)
	}
	d.cache.ClearTransient()

	stats.Duration = time.Since(start)
	return stats, err
}

// Release frees the device copy of the blank texture. The next frame uploads
// it again.
func (d *Dispatcher) Release() {
	if d.blank.uploaded {
		d.dev.ReleaseTexture(d.blank)
		d.blank.uploaded = false
		d.blank.Handle = nil
	}
}

// offsets computes the per-frame translation. Content larger than the
// window is never centered along that axis.
func (d *Dispatcher) offsets(win *Window) (float32, float32) {
	var hofs, vofs int
	if win.BlitHeight <= win.Height && d.cfg.CenterV {
		vofs = (win.Height - win.BlitHeight) / 2
	}
	if win.BlitWidth <= win.Width && d.cfg.CenterH {
		hofs = (win.Width - win.BlitWidth) / 2
	}
	d.lastHofs.Store(int32(hofs))
	d.lastVofs.Store(int32(vofs))

	hofs += int((float64(win.Width) - float64(win.Width)*d.cfg.SafeArea) / 2)
	vofs += int((float64(win.Height) - float64(win.Height)*d.cfg.SafeArea) / 2)
	return float32(hofs), float32(vofs)
}

func (d *Dispatcher) drawPrimitive(p *Primitive, hofs, vofs float32, stats *FrameStats) {
	if p.Blend != d.blend {
		d.dev.SetBlendMode(p.Blend)
		d.blend = p.Blend
		stats.BlendChanges++
	}

	c := p.Color.RGBA8()
	x0, y0 := p.Bounds.X0+hofs, p.Bounds.Y0+vofs
	x1, y1 := p.Bounds.X1+hofs, p.Bounds.Y1+vofs

	switch p.Kind {
	case PrimitiveLine:
		d.bind(d.blank, stats)
		d.dev.DrawLine([2]Vertex{
			{X: x0, Y: y0, Color: c},
			{X: x1, Y: y1, Color: c},
		}, p.Width)

	case PrimitiveQuad:
		tex, uv := d.blank, TexCoords{}
		if p.Texture != nil {
			t, err := d.texture(p.Texture)
			if err != nil {
				stats.Skipped++
				Logger().Debug("gxdraw: primitive skipped", "kind", p.Kind, "err", err)
				return
			}
			tex, uv = t, p.TexCoords
		}
		d.bind(tex, stats)
		d.dev.DrawQuad([4]Vertex{
			{X: x0, Y: y0, U: uv.TL.U, V: uv.TL.V, Color: c},
			{X: x0, Y: y1, U: uv.BL.U, V: uv.BL.V, Color: c},
			{X: x1, Y: y1, U: uv.BR.U, V: uv.BR.V, Color: c},
			{X: x1, Y: y0, U: uv.TR.U, V: uv.TR.V, Color: c},
		})

	default:
		stats.Skipped++
		return
	}
	stats.Drawn++
}

func (d *Dispatcher) texture(buf *SourceBuffer) (*Texture, error) {
	tex, err := d.cache.GetOrCreate(buf, buf.FrameLocal)
	if err != nil {
		return nil, err
	}
	if err := d.cache.Upload(tex); err != nil {
		return nil, err
	}
	return tex, nil
}

func (d *Dispatcher) bind(tex *Texture, stats *FrameStats) {
	d.dev.BindTexture(tex)
	stats.TextureBinds++
}
