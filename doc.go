// Package gxdraw is a texture-upload cache and frame-draw dispatcher for
// tile-based GPU backends.
//
// # Overview
//
// A producer goroutine assembles an ordered [PrimitiveList] of lines and
// quads every frame. Quads may reference caller-owned [SourceBuffer] pixel
// data in one of several packed or palettized encodings. A [Renderer] runs a
// dedicated drawer goroutine that converts the referenced buffers into
// GPU-native 4x4 tiled textures (see package texconv), caches them across
// frames, issues draw commands against a [Device] and swaps between two
// framebuffers once per vertical sync.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gxdraw"
//	    "github.com/gogpu/gxdraw/backend"
//	)
//
//	dev := backend.Get(backend.BackendSoftware)
//	r, err := gxdraw.NewRenderer(dev, gxdraw.WithCenter(true, true))
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	win := gxdraw.NewWindow(640, 480)
//	win.Primitives.Replace([]gxdraw.Primitive{
//	    gxdraw.Quad(gxdraw.Rect{X1: 64, Y1: 64}, gxdraw.White, gxdraw.BlendAlpha),
//	})
//	r.WindowDraw(win) // starts the drawer, returns immediately
//
// # Texture pools
//
// Textures live in one of two pools. The persistent pool keeps a texture per
// buffer identity until [Renderer.ClearAllTextures] or
// [Renderer.InvalidateTexture] drops it. Buffers flagged FrameLocal go to the
// transient pool, which is emptied at the end of every frame. The cache never
// checks buffer contents: callers invalidate an identity to force a refresh,
// and must invalidate it before the buffer is destroyed.
//
// # Frame protocol
//
// Each frame the dispatcher holds the list lock for the whole primitive walk,
// changes the blend mode only when it differs from the previous primitive,
// binds a constant 1x1 white texture for untextured geometry, then signals
// draw-done, toggles the framebuffer index, copies the frame to the display,
// waits for vsync and clears the transient pool.
//
// # Errors
//
// Per-primitive failures (unsupported formats, budget refusals, upload
// errors) skip that primitive only. A device that is not ready drops the
// whole frame; the drawer retries on the next iteration.
//
// # Logging
//
// gxdraw is silent by default. Call [SetLogger] to enable log output.
package gxdraw
