package backend

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gxdraw"
	"github.com/gogpu/gxdraw/texconv"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// init registers the software device on package import.
func init() {
	Register(BackendSoftware, func() gxdraw.Device {
		return NewSoftwareDevice()
	})
}

// SoftwareStats counts the work done by a SoftwareDevice.
type SoftwareStats struct {
	Quads        uint64
	Lines        uint64
	Frames       uint64
	Uploads      uint64
	Releases     uint64
	BlendChanges uint64
}

// SoftwareDevice is a CPU-based gxdraw.Device.
//
// It draws into an embedded framebuffer and copies finished frames into
// one of two display buffers. Textures are decoded from their tiled layout
// on upload and sampled nearest-neighbor.
type SoftwareDevice struct {
	// mu guards the display buffers and front.
	mu      sync.Mutex
	display [2]*image.NRGBA
	front   int

	ready  atomic.Bool
	closed atomic.Bool
	done   chan struct{}
	logger atomic.Pointer[slog.Logger]

	// Drawer-owned state.
	mode   gxdraw.DisplayMode
	efb    *image.NRGBA
	blend  gxdraw.BlendMode
	bound  *image.NRGBA
	raster *vector.Rasterizer
	mask   *image.Alpha
	vsync  *time.Ticker
	clear  color.NRGBA
	stats  SoftwareStats
}

// NewSoftwareDevice creates an uninitialized software device.
func NewSoftwareDevice() *SoftwareDevice {
	d := &SoftwareDevice{
		clear: color.NRGBA{A: 0xFF},
		done:  make(chan struct{}),
	}
	d.logger.Store(gxdraw.Logger())
	return d
}

// Name returns the backend identifier.
func (d *SoftwareDevice) Name() string {
	return BackendSoftware
}

// SetLogger sets the logger used by the device.
func (d *SoftwareDevice) SetLogger(l *slog.Logger) {
	d.logger.Store(l)
}

// SetClearColor sets the color the framebuffer is reset to after every
// CopyDisplay. The default is opaque black.
func (d *SoftwareDevice) SetClearColor(c color.NRGBA) {
	d.clear = c
}

// Init allocates the framebuffers. A refresh rate above zero paces
// WaitVSync with a ticker. Init on a ready device is a no-op.
func (d *SoftwareDevice) Init(mode gxdraw.DisplayMode) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if d.ready.Load() {
		return nil
	}
	if mode.Width <= 0 || mode.Height <= 0 {
		return fmt.Errorf("backend: invalid display mode %dx%d", mode.Width, mode.Height)
	}

	d.mode = mode
	bounds := image.Rect(0, 0, mode.Width, mode.Height)
	d.efb = image.NewNRGBA(bounds)
	d.mask = image.NewAlpha(bounds)
	d.raster = vector.NewRasterizer(mode.Width, mode.Height)
	d.blend = gxdraw.BlendAlpha
	d.fill(d.efb)

	d.mu.Lock()
	for i := range d.display {
		d.display[i] = image.NewNRGBA(bounds)
		d.fill(d.display[i])
	}
	d.mu.Unlock()

	if mode.RefreshRate > 0 {
		d.vsync = time.NewTicker(time.Duration(float64(time.Second) / mode.RefreshRate))
	}
	d.ready.Store(true)
	d.logger.Load().Info("backend: software device ready",
		"width", mode.Width, "height", mode.Height, "refresh", mode.RefreshRate)
	return nil
}

// Ready reports whether Init completed.
func (d *SoftwareDevice) Ready() bool {
	return d.ready.Load() && !d.closed.Load()
}

// SetBlendMode changes the blend equation for subsequent draws.
func (d *SoftwareDevice) SetBlendMode(m gxdraw.BlendMode) {
	if m != d.blend {
		d.stats.BlendChanges++
	}
	d.blend = m
}

// UploadTexture decodes the tiled texels into an image stored in tex.Handle.
func (d *SoftwareDevice) UploadTexture(tex *gxdraw.Texture) error {
	if !d.ready.Load() {
		return ErrNotInitialized
	}
	if tex.Data == nil {
		return fmt.Errorf("backend: texture %#x has no data", uintptr(tex.ID))
	}
	tex.Handle = texconv.Untile(tex.Tiled())
	d.stats.Uploads++
	return nil
}

// ReleaseTexture drops the decoded image.
func (d *SoftwareDevice) ReleaseTexture(tex *gxdraw.Texture) {
	if img, ok := tex.Handle.(*image.NRGBA); ok && img == d.bound {
		d.bound = nil
	}
	tex.Handle = nil
	d.stats.Releases++
}

// BindTexture selects the image sampled by subsequent draws.
func (d *SoftwareDevice) BindTexture(tex *gxdraw.Texture) {
	img, _ := tex.Handle.(*image.NRGBA)
	d.bound = img
}

// DrawQuad fills the axis-aligned rectangle spanned by the vertices,
// interpolating texture coordinates bilinearly between the corners.
func (d *SoftwareDevice) DrawQuad(v [4]gxdraw.Vertex) {
	if d.efb == nil {
		return
	}
	d.stats.Quads++
	d.rasterQuad(v)
}

// DrawLine strokes a line of the given width with the vertex color.
func (d *SoftwareDevice) DrawLine(v [2]gxdraw.Vertex, width float32) {
	if d.efb == nil {
		return
	}
	d.stats.Lines++
	d.rasterLine(v, width)
}

// DrawDone is a no-op; drawing is synchronous.
func (d *SoftwareDevice) DrawDone() {}

// CopyDisplay copies the framebuffer to display buffer fb, makes it the
// front buffer and clears the framebuffer.
func (d *SoftwareDevice) CopyDisplay(fb int) {
	if d.efb == nil {
		return
	}
	fb &= 1
	d.mu.Lock()
	xdraw.Copy(d.display[fb], image.Point{}, d.efb, d.efb.Bounds(), xdraw.Src, nil)
	d.front = fb
	d.mu.Unlock()

	d.fill(d.efb)
	d.stats.Frames++
}

// WaitVSync blocks until the next tick when a refresh rate was set.
func (d *SoftwareDevice) WaitVSync() error {
	if d.closed.Load() {
		return ErrClosed
	}
	if d.vsync == nil {
		return nil
	}
	select {
	case <-d.vsync.C:
		return nil
	case <-d.done:
		return ErrClosed
	}
}

// FrontBuffer returns a copy of the last displayed frame, or nil before
// Init.
func (d *SoftwareDevice) FrontBuffer() *image.NRGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	src := d.display[d.front]
	if src == nil {
		return nil
	}
	dst := image.NewNRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// FrontBufferScaled returns the last displayed frame resized to w x h with
// approximate bilinear filtering.
func (d *SoftwareDevice) FrontBufferScaled(w, h int) *image.NRGBA {
	src := d.FrontBuffer()
	if src == nil {
		return nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// Framebuffer returns the index of the front display buffer.
func (d *SoftwareDevice) Framebuffer() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.front
}

// Stats returns work counters. It must be called from the drawer goroutine
// or after drawing stopped.
func (d *SoftwareDevice) Stats() SoftwareStats {
	return d.stats
}

// Close stops vsync pacing. A blocked WaitVSync returns ErrClosed.
func (d *SoftwareDevice) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	close(d.done)
	if d.vsync != nil {
		d.vsync.Stop()
	}
	d.ready.Store(false)
	d.logger.Load().Debug("backend: software device closed", "frames", d.stats.Frames)
	return nil
}

func (d *SoftwareDevice) fill(img *image.NRGBA) {
	c := d.clear
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
}
