package gxdraw

import (
	"fmt"
	"image/color"
	"sync"
)

// PrimitiveKind tags the variant of a Primitive.
type PrimitiveKind uint8

// Primitive kinds.
const (
	PrimitiveLine PrimitiveKind = iota
	PrimitiveQuad
)

// String returns the kind name.
func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveLine:
		return "line"
	case PrimitiveQuad:
		return "quad"
	}
	return fmt.Sprintf("PrimitiveKind(%d)", uint8(k))
}

// BlendMode selects how a primitive combines with the framebuffer.
type BlendMode uint8

// Blend modes.
const (
	// BlendNone replaces the destination.
	BlendNone BlendMode = iota

	// BlendAlpha is src*a + dst*(1-a). Devices start in this mode.
	BlendAlpha

	// BlendMultiply is src*dst.
	BlendMultiply

	// BlendAdd is dst + src*a.
	BlendAdd
)

// String returns the mode name.
func (m BlendMode) String() string {
	switch m {
	case BlendNone:
		return "none"
	case BlendAlpha:
		return "alpha"
	case BlendMultiply:
		return "multiply"
	case BlendAdd:
		return "add"
	}
	return fmt.Sprintf("BlendMode(%d)", uint8(m))
}

// Rect holds two corner points in viewport space.
type Rect struct {
	X0, Y0 float32
	X1, Y1 float32
}

// Color is a straight-alpha color with components in 0..1.
type Color struct {
	R, G, B, A float32
}

// Common colors.
var (
	White = Color{1, 1, 1, 1}
	Black = Color{0, 0, 0, 1}
)

// RGBA8 quantizes c to 8 bits per channel. Components outside 0..1 are
// clamped.
func (c Color) RGBA8() color.RGBA {
	return color.RGBA{R: unit8(c.R), G: unit8(c.G), B: unit8(c.B), A: unit8(c.A)}
}

func unit8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xFF
	default:
		return uint8(255 * v)
	}
}

// UV is a texture coordinate pair.
type UV struct {
	U, V float32
}

// TexCoords holds one texture coordinate per quad corner.
type TexCoords struct {
	TL, TR, BL, BR UV
}

// FullTexture maps the whole texture onto a quad.
var FullTexture = TexCoords{
	TL: UV{0, 0},
	TR: UV{1, 0},
	BL: UV{0, 1},
	BR: UV{1, 1},
}

// Primitive is one drawable unit of a frame.
type Primitive struct {
	Kind   PrimitiveKind
	Bounds Rect
	Color  Color
	Blend  BlendMode

	// Width is the line width in pixels. Lines only.
	Width float32

	// Texture is optional and only used by quads.
	Texture   *SourceBuffer
	TexCoords TexCoords
}

// Line returns a line primitive from (X0,Y0) to (X1,Y1).
func Line(bounds Rect, width float32, c Color, blend BlendMode) Primitive {
	return Primitive{Kind: PrimitiveLine, Bounds: bounds, Width: width, Color: c, Blend: blend}
}

// Quad returns an untextured quad primitive.
func Quad(bounds Rect, c Color, blend BlendMode) Primitive {
	return Primitive{Kind: PrimitiveQuad, Bounds: bounds, Color: c, Blend: blend}
}

// TexturedQuad returns a quad sampling tex over its full extent.
func TexturedQuad(bounds Rect, tex *SourceBuffer, c Color, blend BlendMode) Primitive {
	return Primitive{
		Kind:      PrimitiveQuad,
		Bounds:    bounds,
		Color:     c,
		Blend:     blend,
		Texture:   tex,
		TexCoords: FullTexture,
	}
}

// PrimitiveList is the ordered primitive sequence shared between the
// producer and the drawer. List order is z-order.
//
// The drawer holds the lock for a whole frame. Producers either call Replace
// or take the lock themselves and mutate through Primitives.
type PrimitiveList struct {
	lock    sync.Locker
	prims   []Primitive
	version uint64
}

// NewPrimitiveList creates an empty list guarded by lock. A nil lock uses an
// internal mutex.
func NewPrimitiveList(lock sync.Locker) *PrimitiveList {
	if lock == nil {
		lock = new(sync.Mutex)
	}
	return &PrimitiveList{lock: lock}
}

// Lock acquires the list lock.
func (l *PrimitiveList) Lock() { l.lock.Lock() }

// Unlock releases the list lock.
func (l *PrimitiveList) Unlock() { l.lock.Unlock() }

// Replace installs prims as the current sequence and bumps the version.
// The list keeps the slice; the caller must not modify it afterwards.
func (l *PrimitiveList) Replace(prims []Primitive) {
	l.lock.Lock()
	l.prims = prims
	l.version++
	l.lock.Unlock()
}

// Primitives returns the current sequence. The caller must hold the lock.
func (l *PrimitiveList) Primitives() []Primitive {
	return l.prims
}

// Touch bumps the version after an in-place edit. The caller must hold the
// lock.
func (l *PrimitiveList) Touch() {
	l.version++
}

// Version returns the replacement counter.
func (l *PrimitiveList) Version() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.version
}

// Len returns the number of primitives.
func (l *PrimitiveList) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.prims)
}
