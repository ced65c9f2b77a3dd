//go:build !headless

package ebiten

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gxdraw"
	"github.com/gogpu/gxdraw/backend"
	"github.com/gogpu/gxdraw/texconv"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

func init() {
	backend.Register(backend.BackendEbiten, func() gxdraw.Device {
		return NewDevice(DefaultConfig())
	})
}

var (
	// ErrWindowClosed is returned by WaitVSync once the window was closed.
	ErrWindowClosed = errors.New("ebiten: window closed")

	// ErrLoopRunning is returned by Run when the game loop is already
	// running or is owned by Init.
	ErrLoopRunning = errors.New("ebiten: game loop already running")
)

// Config configures a Device.
type Config struct {
	// Title is the window title.
	Title string

	// Scale multiplies the window size. Values below 1 are treated as 1.
	Scale int

	// ShowStats draws a status bar with frame and draw counters.
	ShowStats bool

	// ClearColor is the framebuffer color after every CopyDisplay.
	ClearColor color.RGBA

	// ExternalLoop leaves the game loop to the caller: Init only configures
	// the window and the caller invokes Run, typically from main on
	// platforms that require the main thread for windowing.
	ExternalLoop bool
}

// DefaultConfig returns a titled window at scale 1 clearing to black.
func DefaultConfig() Config {
	return Config{
		Title:      "gxdraw",
		Scale:      1,
		ClearColor: color.RGBA{A: 0xFF},
	}
}

// Stats counts the work done by a Device.
type Stats struct {
	RecordStats

	// Ticks is the number of game loop frames drawn to the window.
	Ticks uint64

	// Replays is the number of published frames rendered by the game loop.
	Replays uint64
}

// Device is a gxdraw.Device presenting in an Ebitengine window.
//
// Draws are recorded on the drawer goroutine and replayed with
// DrawTriangles on the game loop after every CopyDisplay. WaitVSync follows
// the game loop's frame rate.
type Device struct {
	cfg    Config
	logger atomic.Pointer[slog.Logger]

	mode   gxdraw.DisplayMode
	rec    *recorder
	ready  atomic.Bool
	closed atomic.Bool
	vsync  chan struct{}
	done   chan struct{}
	once    sync.Once
	running atomic.Bool
	runErr  atomic.Pointer[error]

	ticks   atomic.Uint64
	replays atomic.Uint64

	// Game-loop owned state.
	images map[*image.NRGBA]*ebiten.Image
	target *ebiten.Image
	seq    uint64
	verts  []ebiten.Vertex
	idx    []uint16
}

// NewDevice creates an uninitialized device.
func NewDevice(cfg Config) *Device {
	if cfg.Scale < 1 {
		cfg.Scale = 1
	}
	d := &Device{
		cfg:    cfg,
		rec:    newRecorder(),
		vsync:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		images: make(map[*image.NRGBA]*ebiten.Image),
	}
	d.logger.Store(gxdraw.Logger())
	return d
}

// Name returns the backend identifier.
func (d *Device) Name() string {
	return backend.BackendEbiten
}

// SetLogger sets the logger used by the device.
func (d *Device) SetLogger(l *slog.Logger) {
	d.logger.Store(l)
}

// Init opens the window and starts the game loop. It returns after the
// first frame was drawn. With Config.ExternalLoop set it returns as soon as
// the window is configured and the caller must call Run. Init on a ready
// device is a no-op.
func (d *Device) Init(mode gxdraw.DisplayMode) error {
	if d.closed.Load() {
		return backend.ErrClosed
	}
	if d.ready.Load() {
		return nil
	}
	if mode.Width <= 0 || mode.Height <= 0 {
		return fmt.Errorf("ebiten: invalid display mode %dx%d", mode.Width, mode.Height)
	}
	d.mode = mode

	ebiten.SetWindowSize(mode.Width*d.cfg.Scale, mode.Height*d.cfg.Scale)
	ebiten.SetWindowTitle(d.cfg.Title)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetScreenClearedEveryFrame(false)
	if mode.RefreshRate > 0 {
		ebiten.SetTPS(int(mode.RefreshRate + 0.5))
	}

	if !d.cfg.ExternalLoop {
		go func() { _ = d.run() }()

		select {
		case <-d.vsync:
		case <-d.done:
			if errp := d.runErr.Load(); errp != nil {
				return fmt.Errorf("ebiten: run game: %w", *errp)
			}
			return ErrWindowClosed
		}
	}

	d.ready.Store(true)
	d.logger.Load().Info("ebiten: device ready",
		"width", mode.Width, "height", mode.Height, "scale", d.cfg.Scale,
		"external", d.cfg.ExternalLoop)
	return nil
}

// Run runs the game loop on the calling goroutine until the window is
// closed or Close is called. It requires Config.ExternalLoop and a prior
// Init. Closing the device ends Run with a nil error.
func (d *Device) Run() error {
	if !d.cfg.ExternalLoop {
		return ErrLoopRunning
	}
	if !d.ready.Load() {
		if d.closed.Load() {
			return backend.ErrClosed
		}
		return backend.ErrNotInitialized
	}
	if !d.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	return d.run()
}

func (d *Device) run() error {
	defer d.Close()
	if err := ebiten.RunGame(d); err != nil {
		d.runErr.Store(&err)
		d.logger.Load().Warn("ebiten: game loop stopped", "err", err)
		return fmt.Errorf("ebiten: run game: %w", err)
	}
	return nil
}

// Ready reports whether the window is open.
func (d *Device) Ready() bool {
	return d.ready.Load() && !d.closed.Load()
}

// SetBlendMode changes the blend equation for subsequent draws.
func (d *Device) SetBlendMode(m gxdraw.BlendMode) {
	d.rec.setBlend(m)
}

// UploadTexture decodes the tiled texels into an image stored in
// tex.Handle. The game loop creates the GPU image on first use.
func (d *Device) UploadTexture(tex *gxdraw.Texture) error {
	if !d.Ready() {
		return backend.ErrNotInitialized
	}
	if tex.Data == nil {
		return fmt.Errorf("ebiten: texture %#x has no data", uintptr(tex.ID))
	}
	tex.Handle = texconv.Untile(tex.Tiled())
	d.rec.stats.Uploads++
	return nil
}

// ReleaseTexture schedules the texture's image for disposal.
func (d *Device) ReleaseTexture(tex *gxdraw.Texture) {
	img, ok := tex.Handle.(*image.NRGBA)
	tex.Handle = nil
	if !ok {
		return
	}
	d.rec.release(img)
}

// BindTexture selects the image sampled by subsequent draws.
func (d *Device) BindTexture(tex *gxdraw.Texture) {
	img, _ := tex.Handle.(*image.NRGBA)
	d.rec.bind(img)
}

// DrawQuad records a quad. It is dropped when no texture is bound.
func (d *Device) DrawQuad(v [4]gxdraw.Vertex) {
	d.rec.quad(v)
}

// DrawLine records a line as a quad of the given width.
func (d *Device) DrawLine(v [2]gxdraw.Vertex, width float32) {
	d.rec.line(v, width)
}

// DrawDone is a no-op; recorded draws are submitted by CopyDisplay.
func (d *Device) DrawDone() {}

// CopyDisplay publishes the recorded frame to the game loop.
func (d *Device) CopyDisplay(fb int) {
	d.rec.publish(fb)
}

// WaitVSync blocks until the game loop drew its next frame.
func (d *Device) WaitVSync() error {
	select {
	case <-d.vsync:
		return nil
	case <-d.done:
		return ErrWindowClosed
	}
}

// Framebuffer returns the index of the last published display buffer.
func (d *Device) Framebuffer() int {
	return d.rec.framebuffer()
}

// Stats returns work counters. It must be called from the drawer goroutine
// or after drawing stopped.
func (d *Device) Stats() Stats {
	return Stats{
		RecordStats: d.rec.stats,
		Ticks:       d.ticks.Load(),
		Replays:     d.replays.Load(),
	}
}

// Close ends the game loop on its next Update. A blocked WaitVSync returns
// ErrWindowClosed.
func (d *Device) Close() error {
	d.once.Do(func() {
		d.closed.Store(true)
		d.ready.Store(false)
		close(d.done)
		d.logger.Load().Debug("ebiten: device closed", "frames", d.rec.stats.Frames)
	})
	return nil
}

// Update implements ebiten.Game.
func (d *Device) Update() error {
	if d.closed.Load() || ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game. It renders a newly published frame into the
// offscreen target and presents the target.
func (d *Device) Draw(screen *ebiten.Image) {
	if d.target == nil {
		d.target = ebiten.NewImage(d.mode.Width, d.mode.Height)
		d.target.Fill(d.cfg.ClearColor)
	}

	u := d.rec.take(d.seq)
	if u.changed {
		d.seq = u.seq
		d.replay(u.ops)
		d.replays.Add(1)
	}
	for _, img := range u.released {
		if e, ok := d.images[img]; ok {
			e.Dispose()
			delete(d.images, img)
		}
	}

	screen.DrawImage(d.target, nil)
	if d.cfg.ShowStats {
		d.drawStatusBar(screen)
	}

	d.ticks.Add(1)
	select {
	case d.vsync <- struct{}{}:
	default:
	}
}

// Layout implements ebiten.Game with a fixed logical size.
func (d *Device) Layout(_, _ int) (int, int) {
	return d.mode.Width, d.mode.Height
}

func (d *Device) replay(ops []drawOp) {
	d.target.Fill(d.cfg.ClearColor)
	for _, b := range batchOps(ops) {
		src := d.image(b.img)
		w, h := float32(b.img.Bounds().Dx()), float32(b.img.Bounds().Dy())

		d.verts, d.idx = d.verts[:0], d.idx[:0]
		for _, op := range b.ops {
			base := uint16(len(d.verts))
			for _, v := range op.v {
				d.verts = append(d.verts, ebiten.Vertex{
					DstX:   v.X,
					DstY:   v.Y,
					SrcX:   v.U * w,
					SrcY:   v.V * h,
					ColorR: float32(v.Color.R) / 0xFF,
					ColorG: float32(v.Color.G) / 0xFF,
					ColorB: float32(v.Color.B) / 0xFF,
					ColorA: float32(v.Color.A) / 0xFF,
				})
			}
			d.idx = append(d.idx, base, base+1, base+2, base, base+2, base+3)
			if len(d.verts)+4 > maxVertices {
				d.drawTriangles(src, b.blend)
			}
		}
		d.drawTriangles(src, b.blend)
	}
}

// maxVertices keeps indices within uint16.
const maxVertices = 1 << 16

func (d *Device) drawTriangles(src *ebiten.Image, m gxdraw.BlendMode) {
	if len(d.idx) == 0 {
		return
	}
	d.target.DrawTriangles(d.verts, d.idx, src, &ebiten.DrawTrianglesOptions{
		Blend:   blendFor(m),
		Filter:  ebiten.FilterNearest,
		Address: ebiten.AddressClampToZero,
	})
	d.verts, d.idx = d.verts[:0], d.idx[:0]
}

// image returns the GPU image of img, creating it on first use.
func (d *Device) image(img *image.NRGBA) *ebiten.Image {
	if e, ok := d.images[img]; ok {
		return e
	}
	e := ebiten.NewImageFromImage(img)
	d.images[img] = e
	return e
}

// multiplyBlend is src*dst on all channels.
var multiplyBlend = ebiten.Blend{
	BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
	BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
	BlendFactorDestinationRGB:   ebiten.BlendFactorZero,
	BlendFactorDestinationAlpha: ebiten.BlendFactorZero,
	BlendOperationRGB:           ebiten.BlendOperationAdd,
	BlendOperationAlpha:         ebiten.BlendOperationAdd,
}

// blendFor maps a blend mode to Ebitengine's premultiplied blend state.
func blendFor(m gxdraw.BlendMode) ebiten.Blend {
	switch m {
	case gxdraw.BlendNone:
		return ebiten.BlendCopy
	case gxdraw.BlendMultiply:
		return multiplyBlend
	case gxdraw.BlendAdd:
		return ebiten.BlendLighter
	default:
		return ebiten.BlendSourceOver
	}
}

const statusBarHeight = 16

func (d *Device) drawStatusBar(screen *ebiten.Image) {
	y := d.mode.Height - statusBarHeight
	ebitenutil.DrawRect(screen, 0, float64(y), float64(d.mode.Width), statusBarHeight, color.RGBA{0, 0, 0, 180})
	d.rec.mu.Lock()
	ops := d.rec.stats.Published
	d.rec.mu.Unlock()
	label := fmt.Sprintf("FPS %.1f  frame %d  ops %d  textures %d",
		ebiten.ActualFPS(), d.seq, ops, len(d.images))
	text.Draw(screen, label, basicfont.Face7x13, 4, y+12, color.White)
}
