//go:build !headless

package main

import (
	"github.com/gogpu/gxdraw"
	"github.com/gogpu/gxdraw/backend/ebiten"
)

// newMainThreadDevice returns an ebiten device whose game loop runs on the
// goroutine that calls the returned function.
func newMainThreadDevice() (gxdraw.Device, func() error) {
	cfg := ebiten.DefaultConfig()
	cfg.ExternalLoop = true
	d := ebiten.NewDevice(cfg)
	return d, d.Run
}
