package texconv

import (
	"errors"
	"fmt"
)

// Conversion errors.
var (
	// ErrUnsupportedFormat is returned for an unknown source pixel format.
	ErrUnsupportedFormat = errors.New("texconv: unsupported pixel format")

	// ErrInvalidSize is returned when dimensions or row stride are invalid.
	ErrInvalidSize = errors.New("texconv: invalid size")

	// ErrShortBuffer is returned when Pix holds fewer bytes than the
	// dimensions require.
	ErrShortBuffer = errors.New("texconv: pixel buffer too short")

	// ErrMissingPalette is returned for an indexed format without a palette.
	ErrMissingPalette = errors.New("texconv: missing palette")
)

// PixelFormat identifies the encoding of a source buffer.
type PixelFormat uint8

// Source pixel formats.
const (
	// FormatUndefined is the zero value and is never convertible.
	FormatUndefined PixelFormat = iota

	// ARGB32 is a packed 32-bit 0xAARRGGBB word per pixel.
	ARGB32

	// RGB32 is a packed 32-bit 0x--RRGGBB word per pixel; alpha is ignored.
	RGB32

	// Palette16 is a 16-bit palette index per pixel, opaque.
	Palette16

	// PaletteA16 is a 16-bit palette index per pixel using palette alpha.
	PaletteA16

	// Indexed8 is an 8-bit palette index per pixel, opaque.
	Indexed8

	// IndexedA8 is an 8-bit palette index per pixel using palette alpha.
	IndexedA8

	// RGB15 is a packed 16-bit RRRRRGGGGGBBBBBx word whose low bit marks an
	// opaque texel. Transparent texels keep the top four bits per channel.
	RGB15

	// YUY16 is a 16-bit word per pixel: Y in the low byte, a chroma sample in
	// the high byte (Cb on even pixels, Cr on odd pixels).
	YUY16
)

var pixelFormatNames = [...]string{
	FormatUndefined: "undefined",
	ARGB32:          "argb32",
	RGB32:           "rgb32",
	Palette16:       "palette16",
	PaletteA16:      "palettea16",
	Indexed8:        "indexed8",
	IndexedA8:       "indexeda8",
	RGB15:           "rgb15",
	YUY16:           "yuy16",
}

// String returns the lower-case format name.
func (f PixelFormat) String() string {
	if int(f) < len(pixelFormatNames) {
		return pixelFormatNames[f]
	}
	return fmt.Sprintf("PixelFormat(%d)", uint8(f))
}

// BytesPerPixel returns the size of one source pixel, or 0 for an unknown
// format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case ARGB32, RGB32:
		return 4
	case Palette16, PaletteA16, RGB15, YUY16:
		return 2
	case Indexed8, IndexedA8:
		return 1
	default:
		return 0
	}
}

// Indexed reports whether the format needs a palette.
func (f PixelFormat) Indexed() bool {
	switch f {
	case Palette16, PaletteA16, Indexed8, IndexedA8:
		return true
	}
	return false
}

// Target returns the tiled format the source format converts to.
func (f PixelFormat) Target() (TextureFormat, bool) {
	switch f {
	case ARGB32, RGB32, YUY16:
		return RGBA8, true
	case Palette16, PaletteA16, Indexed8, IndexedA8, RGB15:
		return RGB5A3, true
	}
	return 0, false
}

// TextureFormat identifies a GPU-native tiled format.
type TextureFormat uint8

// Tiled texture formats.
const (
	// RGBA8 is the 4-component 8-bit tiled format, 4 bytes per texel.
	RGBA8 TextureFormat = iota + 1

	// RGB5A3 is the 16-bit tiled format: RGB555 when the top bit is set,
	// A3 RGB444 otherwise.
	RGB5A3
)

// String returns the format name.
func (f TextureFormat) String() string {
	switch f {
	case RGBA8:
		return "RGBA8"
	case RGB5A3:
		return "RGB5A3"
	}
	return fmt.Sprintf("TextureFormat(%d)", uint8(f))
}

// BytesPerTexel returns the storage size of one texel.
func (f TextureFormat) BytesPerTexel() int {
	switch f {
	case RGBA8:
		return 4
	case RGB5A3:
		return 2
	}
	return 0
}

// TileBytes returns the size of one 4x4 tile.
func (f TextureFormat) TileBytes() int {
	return 16 * f.BytesPerTexel()
}

// Source describes a rectangular pixel buffer awaiting conversion.
type Source struct {
	Width  int
	Height int

	// RowPixels is the row stride in source pixels. Zero means Width.
	RowPixels int

	Format PixelFormat

	// Pix holds little-endian source words.
	Pix []byte

	// Palette holds 0xAARRGGBB entries for indexed formats.
	Palette []uint32
}

// Stride returns the effective row stride in pixels.
func (s *Source) Stride() int {
	if s.RowPixels > 0 {
		return s.RowPixels
	}
	return s.Width
}

// MaxDimension bounds width, height and row stride so every byte count fits
// in an int on 32-bit platforms.
const MaxDimension = 1 << 14

// Validate checks that the source can be converted.
func (s *Source) Validate() error {
	bpp := s.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, s.Format)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, s.Width, s.Height)
	}
	stride := s.Stride()
	if stride < s.Width {
		return fmt.Errorf("%w: stride %d < width %d", ErrInvalidSize, stride, s.Width)
	}
	if s.Height > MaxDimension || stride > MaxDimension {
		return fmt.Errorf("%w: %dx%d (stride %d) exceeds %d", ErrInvalidSize, s.Width, s.Height, stride, MaxDimension)
	}
	need := ((s.Height-1)*stride + s.Width) * bpp
	if len(s.Pix) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(s.Pix), need)
	}
	if s.Format.Indexed() && len(s.Palette) == 0 {
		return fmt.Errorf("%w: %v", ErrMissingPalette, s.Format)
	}
	return nil
}

// Tiled is a converted texture blob.
type Tiled struct {
	Format TextureFormat

	// Width and Height are the unpadded source dimensions.
	Width  int
	Height int

	// PaddedWidth and PaddedHeight are rounded up to a multiple of four.
	PaddedWidth  int
	PaddedHeight int

	// Data holds the tiled texels, 32-byte aligned.
	Data []byte
}

// Tiles returns the number of tiles per row and per column.
func (t *Tiled) Tiles() (cols, rows int) {
	return t.PaddedWidth / 4, t.PaddedHeight / 4
}

// pad4 rounds n up to a multiple of four.
func pad4(n int) int {
	return (n + 3) &^ 3
}
