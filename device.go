package gxdraw

import (
	"image/color"
	"math"
)

// DisplayMode describes the output surface a device renders to.
type DisplayMode struct {
	Width  int
	Height int

	// RefreshRate in Hz. Zero disables vsync pacing where the device
	// paces itself.
	RefreshRate float64
}

// DefaultDisplayMode is a 640x480 surface at 60 Hz.
var DefaultDisplayMode = DisplayMode{Width: 640, Height: 480, RefreshRate: 60}

// Vertex is one corner of a line or quad.
type Vertex struct {
	X, Y  float32
	U, V  float32
	Color color.RGBA
}

// LineQuad expands a line into a quad of the given width, ordered like the
// vertices of DrawQuad. Widths <= 0 draw one pixel wide. It reports false
// for zero-length lines.
func LineQuad(v [2]Vertex, width float32) ([4]Vertex, bool) {
	if width <= 0 {
		width = 1
	}
	dx, dy := v[1].X-v[0].X, v[1].Y-v[0].Y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return [4]Vertex{}, false
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	return [4]Vertex{
		{X: v[0].X + nx, Y: v[0].Y + ny, U: v[0].U, V: v[0].V, Color: v[0].Color},
		{X: v[0].X - nx, Y: v[0].Y - ny, U: v[0].U, V: v[0].V, Color: v[0].Color},
		{X: v[1].X - nx, Y: v[1].Y - ny, U: v[1].U, V: v[1].V, Color: v[1].Color},
		{X: v[1].X + nx, Y: v[1].Y + ny, U: v[1].U, V: v[1].V, Color: v[1].Color},
	}, true
}

// Device is the GPU backend consumed by the dispatcher.
//
// All draw methods are called from the drawer goroutine only. A device
// starts in BlendAlpha after Init.
type Device interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Init performs one-time setup for the given display mode.
	Init(mode DisplayMode) error

	// Ready reports whether Init completed and frames can be drawn.
	Ready() bool

	// SetBlendMode changes the blend state for subsequent draws.
	SetBlendMode(m BlendMode)

	// UploadTexture makes tex.Data visible to the GPU. It is called once per
	// texture before its first bind and may store backend state in
	// tex.Handle.
	UploadTexture(tex *Texture) error

	// ReleaseTexture frees backend state of a texture leaving the cache.
	ReleaseTexture(tex *Texture)

	// BindTexture selects the texture sampled by subsequent draws.
	BindTexture(tex *Texture)

	// DrawLine draws a line of the given width in pixels.
	DrawLine(v [2]Vertex, width float32)

	// DrawQuad draws a quad. Vertices are ordered top-left, bottom-left,
	// bottom-right, top-right.
	DrawQuad(v [4]Vertex)

	// DrawDone waits until all issued draws completed.
	DrawDone()

	// CopyDisplay copies the finished frame into framebuffer fb (0 or 1)
	// and schedules it for display.
	CopyDisplay(fb int)

	// WaitVSync blocks until the next vertical sync.
	WaitVSync() error

	// Close releases all device resources.
	Close() error
}
