package gxdraw

import "github.com/gogpu/gxdraw/texconv"

// BlankTextureID is the identity of the constant white texture bound for
// untextured geometry.
const BlankTextureID = ^BufferID(0)

// Texture is a converted, GPU-ready texture owned by the cache.
type Texture struct {
	ID     BufferID
	Format texconv.TextureFormat

	// Width and Height are the source dimensions.
	Width  int
	Height int

	PaddedWidth  int
	PaddedHeight int

	// Size is len(Data) in bytes.
	Size int

	// Data holds the tiled texels, 32-byte aligned.
	Data []byte

	// Transient marks textures of the per-frame pool.
	Transient bool

	// Handle is backend state set by Device.UploadTexture.
	Handle any

	uploaded bool
}

func newTexture(id BufferID, t *texconv.Tiled, transient bool) *Texture {
	return &Texture{
		ID:           id,
		Format:       t.Format,
		Width:        t.Width,
		Height:       t.Height,
		PaddedWidth:  t.PaddedWidth,
		PaddedHeight: t.PaddedHeight,
		Size:         len(t.Data),
		Data:         t.Data,
		Transient:    transient,
	}
}

// Uploaded reports whether the device has seen this texture.
func (t *Texture) Uploaded() bool { return t.uploaded }

// Tiled returns a view of the texture data for texconv helpers.
func (t *Texture) Tiled() *texconv.Tiled {
	return &texconv.Tiled{
		Format:       t.Format,
		Width:        t.Width,
		Height:       t.Height,
		PaddedWidth:  t.PaddedWidth,
		PaddedHeight: t.PaddedHeight,
		Data:         t.Data,
	}
}

// newBlankTexture returns a 1x1 opaque white RGB5A3 texture: one tile of
// 0xFF bytes.
func newBlankTexture() *Texture {
	data := texconv.AllocAligned(texconv.RGB5A3.TileBytes())
	for i := range data {
		data[i] = 0xFF
	}
	return &Texture{
		ID:           BlankTextureID,
		Format:       texconv.RGB5A3,
		Width:        1,
		Height:       1,
		PaddedWidth:  4,
		PaddedHeight: 4,
		Size:         len(data),
		Data:         data,
	}
}
