package gxdraw

import (
	"unsafe"

	"github.com/gogpu/gxdraw/texconv"
)

// BufferID is the identity key of a source buffer. The cache only compares
// it and never dereferences it.
type BufferID uintptr

// BufferIDOf returns the identity of the memory backing pix, or 0 for an
// empty slice.
func BufferIDOf(pix []byte) BufferID {
	if len(pix) == 0 {
		return 0
	}
	return BufferID(uintptr(unsafe.Pointer(&pix[0])))
}

// SourceBuffer is a caller-owned pixel buffer referenced by textured quads.
//
// The caller keeps ownership for the buffer's whole lifetime. When the buffer
// is destroyed or its contents change, the caller must invalidate its ID on
// the Renderer; the cache does not detect either.
type SourceBuffer struct {
	ID BufferID
	texconv.Source

	// FrameLocal marks buffers rebuilt every frame, such as a live screen
	// surface. Their textures go to the transient pool.
	FrameLocal bool
}

// NewSourceBuffer wraps src and keys it by the address of its pixels.
func NewSourceBuffer(src texconv.Source) *SourceBuffer {
	return &SourceBuffer{ID: BufferIDOf(src.Pix), Source: src}
}
