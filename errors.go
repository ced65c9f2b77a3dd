package gxdraw

import (
	"errors"
	"fmt"

	"github.com/gogpu/gxdraw/texconv"
)

// Errors returned by gxdraw.
var (
	// ErrUnsupportedFormat is returned when a source buffer uses an unknown
	// pixel format. It is the texconv sentinel, so errors.Is matches either.
	ErrUnsupportedFormat = texconv.ErrUnsupportedFormat

	// ErrAllocation is returned when texture storage cannot be reserved.
	ErrAllocation = errors.New("gxdraw: texture allocation failed")

	// ErrBackendNotReady is returned when a frame is requested before the
	// device finished its one-time setup.
	ErrBackendNotReady = errors.New("gxdraw: backend not ready")

	// ErrClosed is returned by operations on a closed Renderer.
	ErrClosed = errors.New("gxdraw: renderer closed")

	// ErrNoDevice is returned when NewRenderer gets a nil device.
	ErrNoDevice = errors.New("gxdraw: no device")

	// ErrNoWindow is returned when a nil window is drawn.
	ErrNoWindow = errors.New("gxdraw: no window")

	// ErrNilBuffer is returned when a texture is requested for a nil buffer.
	ErrNilBuffer = errors.New("gxdraw: nil source buffer")

	// ErrUnknownScaleMode is returned by ParseScaleMode.
	ErrUnknownScaleMode = errors.New("gxdraw: unknown scale mode")
)

// TextureError describes a failure to produce or upload a texture.
type TextureError struct {
	Op     string // "convert", "allocate" or "upload"
	ID     BufferID
	Format texconv.PixelFormat
	Err    error
}

func (e *TextureError) Error() string {
	return fmt.Sprintf("gxdraw: %s texture %#x (%v): %v", e.Op, uintptr(e.ID), e.Format, e.Err)
}

func (e *TextureError) Unwrap() error {
	return e.Err
}
