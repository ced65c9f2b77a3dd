package gxdraw

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gxdraw/internal/parallel"
)

// Renderer owns a device, a texture cache and the drawer goroutine.
//
// WindowDraw, WindowDestroy, ClearAllTextures and InvalidateTexture are safe
// to call from any goroutine. The texture cache itself is only touched by
// the drawer, or inline while no drawer runs.
type Renderer struct {
	dev   Device
	opts  options
	cache *TextureCache
	disp  *Dispatcher
	pool  *parallel.Pool

	window atomic.Pointer[Window]

	// mu guards running, done and requests.
	mu       sync.Mutex
	running  bool
	done     chan struct{}
	requests []func(*TextureCache)

	frames    atomic.Uint64
	lastFrame atomic.Pointer[FrameStats]
	closed    atomic.Bool

	// Drawer-owned redraw bookkeeping.
	lastWindow  *Window
	lastVersion uint64
}

// NewRenderer initializes dev and returns a renderer drawing to it.
func NewRenderer(dev Device, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	trackDevice(dev)
	if err := dev.Init(o.mode); err != nil {
		untrackDevice(dev)
		return nil, fmt.Errorf("gxdraw: init %s: %w", dev.Name(), err)
	}

	cacheOpts := []CacheOption{WithCacheBudget(o.budget)}
	var pool *parallel.Pool
	if o.workers > 1 {
		pool = parallel.NewPool(o.workers)
		cacheOpts = append(cacheOpts, WithConversionRunner(pool))
	}
	c := NewTextureCache(dev, cacheOpts...)
	r := &Renderer{
		dev:   dev,
		opts:  o,
		cache: c,
		disp:  NewDispatcher(dev, c, o.dispatch),
		pool:  pool,
	}
	Logger().Info("gxdraw: renderer created",
		"device", dev.Name(), "width", o.mode.Width, "height", o.mode.Height)
	return r, nil
}

// Device returns the device the renderer draws to.
func (r *Renderer) Device() Device {
	return r.dev
}

// WindowDraw marks win as the current window and starts the drawer if it is
// not running. It never blocks on drawing.
func (r *Renderer) WindowDraw(win *Window) error {
	if win == nil {
		return ErrNoWindow
	}
	if r.closed.Load() {
		return ErrClosed
	}
	r.window.Store(win)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		r.running = true
		r.done = make(chan struct{})
		go r.drawLoop(r.done)
		Logger().Info("gxdraw: drawer started", "device", r.dev.Name())
	}
	return nil
}

// WindowDestroy clears the current window and waits for the drawer to
// finish its frame and exit. The drawer frees the persistent pool on exit.
func (r *Renderer) WindowDestroy() {
	r.window.Store(nil)

	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// ClearAllTextures drops every persistent texture. With a running drawer
// the request is served at the top of its next frame.
func (r *Renderer) ClearAllTextures() {
	r.submit(func(c *TextureCache) {
		n := c.ClearPersistent()
		Logger().Debug("gxdraw: persistent textures cleared", "count", n)
	})
}

// InvalidateTexture drops the persistent texture of id. Callers must
// invalidate a buffer before destroying it.
func (r *Renderer) InvalidateTexture(id BufferID) {
	r.submit(func(c *TextureCache) {
		c.Invalidate(id)
	})
}

// submit runs fn on the cache owner.
func (r *Renderer) submit(fn func(*TextureCache)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.requests = append(r.requests, fn)
		return
	}
	fn(r.cache)
}

// Running reports whether the drawer goroutine is active.
func (r *Renderer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Frames returns the number of frames drawn.
func (r *Renderer) Frames() uint64 {
	return r.frames.Load()
}

// LastFrame returns the statistics of the most recent frame.
func (r *Renderer) LastFrame() FrameStats {
	if s := r.lastFrame.Load(); s != nil {
		return *s
	}
	return FrameStats{}
}

// CacheStats returns texture cache statistics. It must not be called while
// the drawer is running.
func (r *Renderer) CacheStats() CacheStats {
	return r.cache.Stats()
}

// XYToRenderTarget maps a point on the output surface to render target
// coordinates, using the offsets of the last frame. It reports false for
// points outside the blit area.
func (r *Renderer) XYToRenderTarget(x, y int) (xt, yt int, ok bool) {
	win := r.window.Load()
	if win == nil || win.BlitWidth <= 0 || win.BlitHeight <= 0 {
		return 0, 0, false
	}
	hofs, vofs := r.disp.LastOffsets()
	xt, yt = x-hofs, y-vofs
	if xt < 0 || xt >= win.BlitWidth || yt < 0 || yt >= win.BlitHeight {
		return 0, 0, false
	}
	if !r.opts.scaleMode.IsScale {
		return xt, yt, true
	}
	hw, hh := r.opts.scaleMode.HardwareSize(win.BlitWidth, win.BlitHeight)
	if r.opts.hwScaleW > 0 && r.opts.hwScaleH > 0 {
		hw, hh = r.opts.hwScaleW, r.opts.hwScaleH
	}
	return xt * hw / win.BlitWidth, yt * hh / win.BlitHeight, true
}

// Close stops the drawer and closes the device. Close is idempotent.
func (r *Renderer) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.WindowDestroy()
	if r.pool != nil {
		r.pool.Close()
	}
	untrackDevice(r.dev)
	return r.dev.Close()
}

// drawLoop runs frames until the current window becomes nil.
func (r *Renderer) drawLoop(done chan struct{}) {
	defer close(done)
	for {
		win := r.window.Load()
		if win == nil {
			if r.stop() {
				return
			}
			continue
		}
		r.runRequests()
		r.frame(win)
	}
}

// stop ends the drawer unless a window was set again meanwhile.
func (r *Renderer) stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.window.Load() != nil {
		return false
	}
	for _, fn := range r.requests {
		fn(r.cache)
	}
	r.requests = nil
	n := r.cache.ClearPersistent()
	r.cache.ClearTransient()
	r.disp.Release()
	r.running = false
	r.done = nil
	r.lastWindow = nil
	Logger().Info("gxdraw: drawer stopped", "frames", r.frames.Load(), "released", n)
	return true
}

func (r *Renderer) runRequests() {
	r.mu.Lock()
	reqs := r.requests
	r.requests = nil
	r.mu.Unlock()
	for _, fn := range reqs {
		fn(r.cache)
	}
}

func (r *Renderer) frame(win *Window) {
	if r.opts.redraw == IdleUntilChanged && win == r.lastWindow && win.Primitives != nil &&
		win.Primitives.Version() == r.lastVersion {
		if err := r.dev.WaitVSync(); err != nil {
			Logger().Warn("gxdraw: vsync failed", "err", err)
		}
		return
	}

	var version uint64
	if win.Primitives != nil {
		version = win.Primitives.Version()
	}
	stats, err := r.disp.DrawFrame(win)
	switch {
	case errors.Is(err, ErrBackendNotReady):
		Logger().Debug("gxdraw: frame dropped", "err", err)
		time.Sleep(r.opts.retry)
		return
	case err != nil:
		Logger().Warn("gxdraw: frame failed", "err", err)
	}

	r.lastWindow, r.lastVersion = win, version
	r.lastFrame.Store(&stats)
	r.frames.Add(1)
}
