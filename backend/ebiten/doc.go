// Package ebiten provides a gxdraw device that presents frames in an
// Ebitengine window.
//
// Importing the package registers the "ebiten" backend:
//
//	import _ "github.com/gogpu/gxdraw/backend/ebiten"
//
// Draws are recorded on the drawer goroutine. CopyDisplay publishes the
// recorded frame and the game loop replays it with DrawTriangles, one call
// per run of draws sharing a blend mode and texture. WaitVSync returns
// after the game loop drew its next frame, so the drawer runs at the
// window's frame rate.
//
// By default Init starts the game loop on a new goroutine. Platforms that
// require the main thread for windowing set Config.ExternalLoop and call
// Device.Run from main while the renderer draws on its own goroutine:
//
//	cfg := ebiten.DefaultConfig()
//	cfg.ExternalLoop = true
//	dev := ebiten.NewDevice(cfg)
//	r, err := gxdraw.NewRenderer(dev)
//	...
//	r.WindowDraw(win)
//	if err := dev.Run(); err != nil {
//		log.Fatal(err)
//	}
//
// Building with the headless tag leaves out the window device, for
// machines without a display or graphics headers.
package ebiten
