// Command gxdemo draws an animated test scene through a gxdraw backend.
//
// Usage:
//
//	gxdemo -backend software -frames 120 -out frame.bmp
//	gxdemo -backend ebiten -frames 0
//	gxdemo -mainthread -frames 0
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/gxdraw"
	"github.com/gogpu/gxdraw/backend"
	"github.com/gogpu/gxdraw/texconv"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"

	_ "github.com/gogpu/gxdraw/backend/ebiten"
	_ "github.com/gogpu/gxdraw/backend/wgpu"
)

func main() {
	var (
		name      = flag.String("backend", "", "backend name (default: best available)")
		frames    = flag.Int("frames", 120, "frames to draw, 0 runs until interrupted")
		width     = flag.Int("width", 640, "surface width")
		height    = flag.Int("height", 480, "surface height")
		refresh   = flag.Float64("refresh", 60, "refresh rate in Hz")
		center    = flag.Bool("center", true, "center the blit area")
		safeArea  = flag.Float64("safearea", 1, "fraction of the surface inside the overscan safe area")
		scaleMode = flag.String("scalemode", "none", "scale mode name")
		idle      = flag.Bool("idle", false, "skip redraws while the scene is unchanged")
		out       = flag.String("out", "", "write the last frame as BMP")
		scale     = flag.Int("scale", 1, "output image scale factor")
		verbose   = flag.Bool("v", false, "debug logging")
		mainLoop  = flag.Bool("mainthread", false, "run the ebiten window loop on the main goroutine")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	gxdraw.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	sm, err := gxdraw.ParseScaleMode(*scaleMode)
	if err != nil {
		log.Fatal(err)
	}

	mode := gxdraw.DisplayMode{Width: *width, Height: *height, RefreshRate: *refresh}
	var (
		dev     gxdraw.Device
		runLoop func() error
	)
	if *mainLoop {
		if dev, runLoop = newMainThreadDevice(); dev == nil {
			log.Fatal("-mainthread needs the ebiten backend, not available in headless builds")
		}
	} else if dev, err = openDevice(*name, mode); err != nil {
		log.Fatal(err)
	}

	opts := []gxdraw.Option{
		gxdraw.WithDisplayMode(mode),
		gxdraw.WithCenter(*center, *center),
		gxdraw.WithSafeArea(*safeArea),
		gxdraw.WithScaleMode(sm),
	}
	if *idle {
		opts = append(opts, gxdraw.WithRedrawPolicy(gxdraw.IdleUntilChanged))
	}
	r, err := gxdraw.NewRenderer(dev, opts...)
	if err != nil {
		log.Fatal(err)
	}

	s := newScene(*width*3/4, *height*3/4)
	win := gxdraw.NewWindow(*width, *height)
	win.BlitWidth, win.BlitHeight = s.w, s.h
	win.Primitives = s.list
	s.build(0)
	if err := r.WindowDraw(win); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if runLoop != nil {
		ctx, cancel := context.WithCancel(ctx)
		animated := make(chan struct{})
		go func() {
			defer close(animated)
			animate(ctx, r, s, *frames, *refresh)
			dev.Close()
		}()
		if err := runLoop(); err != nil {
			log.Print(err)
		}
		cancel()
		<-animated
	} else {
		animate(ctx, r, s, *frames, *refresh)
	}

	r.WindowDestroy()
	st := r.LastFrame()
	cs := r.CacheStats()
	log.Printf("%s: %d frames, last frame %d/%d prims drawn in %v, %d conversions total",
		dev.Name(), r.Frames(), st.Drawn, st.Primitives, st.Duration, cs.Conversions)

	if *out != "" {
		if err := writeFrame(dev, *out, *scale); err != nil {
			log.Printf("write %s: %v", *out, err)
		}
	}
	if err := r.Close(); err != nil {
		log.Fatal(err)
	}
}

// openDevice returns the named device, or the first registered device
// whose Init accepts mode when name is empty.
func openDevice(name string, mode gxdraw.DisplayMode) (gxdraw.Device, error) {
	if name == "" {
		return backend.InitDefault(mode)
	}
	dev := backend.Get(name)
	if dev == nil {
		return nil, fmt.Errorf("backend %q not available (have %v)", name, backend.Available())
	}
	return dev, nil
}

// animate advances the scene once per refresh until n frames were drawn or
// ctx is done.
func animate(ctx context.Context, r *gxdraw.Renderer, s *scene, n int, refresh float64) {
	if refresh <= 0 {
		refresh = 60
	}
	tick := time.NewTicker(time.Duration(float64(time.Second) / refresh))
	defer tick.Stop()
	for step := 1; n <= 0 || r.Frames() < uint64(n); step++ {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		s.build(step)
	}
}

type frontBuffer interface {
	FrontBuffer() *image.NRGBA
}

type frontBufferErr interface {
	FrontBuffer() (*image.NRGBA, error)
}

func writeFrame(dev gxdraw.Device, path string, scale int) error {
	var img *image.NRGBA
	switch d := dev.(type) {
	case frontBuffer:
		img = d.FrontBuffer()
	case frontBufferErr:
		var err error
		if img, err = d.FrontBuffer(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("backend %s has no readable front buffer", dev.Name())
	}
	if img == nil {
		return fmt.Errorf("no frame drawn")
	}
	if scale > 1 {
		b := img.Bounds()
		dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// scene owns the source buffers and rebuilds the primitive list.
type scene struct {
	w, h int
	list *gxdraw.PrimitiveList

	gradient *gxdraw.SourceBuffer
	checker  *gxdraw.SourceBuffer
	tiles    *gxdraw.SourceBuffer
	video    *gxdraw.SourceBuffer
	screen   *gxdraw.SourceBuffer
}

func newScene(w, h int) *scene {
	s := &scene{w: w, h: h, list: gxdraw.NewPrimitiveList(nil)}

	// 32x32 ARGB gradient with an alpha ramp.
	grad := make([]byte, 32*32*4)
	for y := range 32 {
		for x := range 32 {
			binary.LittleEndian.PutUint32(grad[(y*32+x)*4:],
				uint32(0x80+y*4)<<24|uint32(x*8)<<16|uint32(y*8)<<8|0xC0)
		}
	}
	s.gradient = gxdraw.NewSourceBuffer(texconv.Source{Width: 32, Height: 32, Format: texconv.ARGB32, Pix: grad})

	// 16x16 palette checker with a translucent entry.
	check := make([]byte, 16*16*2)
	for y := range 16 {
		for x := range 16 {
			binary.LittleEndian.PutUint16(check[(y*16+x)*2:], uint16((x/4+y/4)&1))
		}
	}
	s.checker = gxdraw.NewSourceBuffer(texconv.Source{
		Width: 16, Height: 16, Format: texconv.PaletteA16, Pix: check,
		Palette: []uint32{0xFFFFFFFF, 0x802040C0},
	})

	// 24x8 RGB15 stripes inside a 32 pixel stride.
	stripes := make([]byte, 32*8*2)
	for y := range 8 {
		for x := range 24 {
			binary.LittleEndian.PutUint16(stripes[(y*32+x)*2:], rgb15(byte(x*10), 0x40, byte(255-x*10)))
		}
	}
	s.tiles = gxdraw.NewSourceBuffer(texconv.Source{Width: 24, Height: 8, RowPixels: 32, Format: texconv.RGB15, Pix: stripes})

	// 16x16 YUY16 luma ramp with neutral chroma.
	yuv := make([]byte, 16*16*2)
	for y := range 16 {
		for x := range 16 {
			yuv[(y*16+x)*2] = byte(16 + x*14)
			yuv[(y*16+x)*2+1] = 0x80
		}
	}
	s.video = gxdraw.NewSourceBuffer(texconv.Source{Width: 16, Height: 16, Format: texconv.YUY16, Pix: yuv})

	// 64x48 live surface rewritten every frame.
	s.screen = gxdraw.NewSourceBuffer(texconv.Source{Width: 64, Height: 48, Format: texconv.RGB32, Pix: make([]byte, 64*48*4)})
	s.screen.FrameLocal = true
	return s
}

// rgb15 packs an opaque RRRRRGGGGGBBBBB1 word.
func rgb15(r, g, b byte) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>3)<<6 | uint16(b>>3)<<1 | 1
}

// build replaces the primitive list with the scene at step.
func (s *scene) build(step int) {
	w, h := float32(s.w), float32(s.h)
	x := float32(step%120) / 120 * (w - 64)

	prims := []gxdraw.Primitive{
		gxdraw.Quad(gxdraw.Rect{X0: 0, Y0: 0, X1: w, Y1: h}, gxdraw.Color{R: 0.1, G: 0.1, B: 0.2, A: 1}, gxdraw.BlendNone),
		gxdraw.TexturedQuad(gxdraw.Rect{X0: 16, Y0: 16, X1: 144, Y1: 144}, s.gradient, gxdraw.White, gxdraw.BlendAlpha),
		gxdraw.TexturedQuad(gxdraw.Rect{X0: 160, Y0: 16, X1: 224, Y1: 80}, s.checker, gxdraw.White, gxdraw.BlendAlpha),
		gxdraw.TexturedQuad(gxdraw.Rect{X0: 160, Y0: 96, X1: 256, Y1: 128}, s.tiles, gxdraw.White, gxdraw.BlendNone),
		gxdraw.TexturedQuad(gxdraw.Rect{X0: 272, Y0: 16, X1: 336, Y1: 80}, s.video, gxdraw.White, gxdraw.BlendAlpha),
		gxdraw.TexturedQuad(gxdraw.Rect{X0: 16, Y0: 160, X1: 144, Y1: 256}, s.screen, gxdraw.White, gxdraw.BlendNone),
		gxdraw.Quad(gxdraw.Rect{X0: 48, Y0: 48, X1: 112, Y1: 112}, gxdraw.Color{R: 1, G: 0.5, B: 0.5, A: 1}, gxdraw.BlendMultiply),
		gxdraw.Quad(gxdraw.Rect{X0: x, Y0: h - 64, X1: x + 64, Y1: h - 16}, gxdraw.Color{R: 0.2, G: 0.6, B: 0.2, A: 0.5}, gxdraw.BlendAdd),
		gxdraw.Line(gxdraw.Rect{X0: 0, Y0: h - 1, X1: w, Y1: 0}, 2, gxdraw.Color{R: 1, G: 1, B: 0, A: 0.75}, gxdraw.BlendAlpha),
		gxdraw.Line(gxdraw.Rect{X0: 0, Y0: h / 2, X1: w, Y1: h / 2}, 1, gxdraw.White, gxdraw.BlendAdd),
	}

	s.list.Lock()
	pix := s.screen.Pix
	for i := 0; i < len(pix); i += 4 {
		p := i / 4
		binary.LittleEndian.PutUint32(pix[i:], uint32(p%64*4+step)&0xFF<<16|uint32(p/64*5)<<8|uint32(step*3)&0xFF)
	}
	s.list.Unlock()
	s.list.Replace(prims)
}
