package texconv

import (
	"encoding/binary"
	"unsafe"
)

// Alignment is the byte alignment of converted texture data.
const Alignment = 32

// Size returns the number of bytes Convert would allocate for src.
func Size(src *Source) (int, error) {
	if err := src.Validate(); err != nil {
		return 0, err
	}
	tf, _ := src.Format.Target()
	return pad4(src.Width) * pad4(src.Height) * tf.BytesPerTexel(), nil
}

// Runner runs fn for every row in [0, n) and returns when all calls
// finished. Calls for different rows may run concurrently.
type Runner interface {
	Rows(n int, fn func(row int))
}

type serial struct{}

func (serial) Rows(n int, fn func(row int)) {
	for row := range n {
		fn(row)
	}
}

// Convert tiles src into its GPU-native format.
func Convert(src *Source) (*Tiled, error) {
	return ConvertWith(src, nil)
}

// ConvertWith is Convert with tile rows distributed by run. A nil run
// converts on the calling goroutine.
func ConvertWith(src *Source, run Runner) (*Tiled, error) {
	if run == nil {
		run = serial{}
	}
	n, err := Size(src)
	if err != nil {
		return nil, err
	}
	tf, _ := src.Format.Target()
	t := &Tiled{
		Format:       tf,
		Width:        src.Width,
		Height:       src.Height,
		PaddedWidth:  pad4(src.Width),
		PaddedHeight: pad4(src.Height),
		Data:         AllocAligned(n),
	}

	r := reader{src: src, stride: src.Stride()}
	switch src.Format {
	case ARGB32:
		writeRGBA8(t, run, r.argb32)
	case RGB32:
		writeRGBA8(t, run, r.rgb32)
	case YUY16:
		writeRGBA8(t, run, r.yuy16)
	case Palette16, Indexed8:
		writeRGB5A3(t, run, r.paletteOpaque)
	case PaletteA16, IndexedA8:
		writeRGB5A3(t, run, r.paletteAlpha)
	case RGB15:
		writeRGB5A3(t, run, r.rgb15)
	default:
		// Validate rejects everything else.
		return nil, ErrUnsupportedFormat
	}
	return t, nil
}

// AllocAligned returns a zeroed slice of n bytes whose first element is
// aligned to [Alignment].
func AllocAligned(n int) []byte {
	if n == 0 {
		return nil
	}
	buf := make([]byte, n+Alignment-1)
	off := int((Alignment - uintptr(unsafe.Pointer(&buf[0]))%Alignment) % Alignment)
	return buf[off : off+n : off+n]
}

// writeRGBA8 fills t with texels from at, one tile row per run call.
// Padding is left zero.
func writeRGBA8(t *Tiled, run Runner, at func(x, y int) (a, r, g, b byte)) {
	cols, rows := t.Tiles()
	run.Rows(rows, func(row int) {
		ty := row * 4
		off := row * cols * 64
		for tx := 0; tx < t.PaddedWidth; tx, off = tx+4, off+64 {
			tile := t.Data[off : off+64]
			for i := 0; i < 16; i++ {
				x, y := tx+i&3, ty+i>>2
				if x >= t.Width || y >= t.Height {
					continue
				}
				a, r, g, b := at(x, y)
				tile[2*i] = a
				tile[2*i+1] = r
				tile[32+2*i] = g
				tile[32+2*i+1] = b
			}
		}
	})
}

// writeRGB5A3 fills t with big-endian texels from at. Padding is left zero.
func writeRGB5A3(t *Tiled, run Runner, at func(x, y int) uint16) {
	cols, rows := t.Tiles()
	run.Rows(rows, func(row int) {
		ty := row * 4
		off := row * cols * 32
		for tx := 0; tx < t.PaddedWidth; tx, off = tx+4, off+32 {
			tile := t.Data[off : off+32]
			for i := 0; i < 16; i++ {
				x, y := tx+i&3, ty+i>>2
				if x >= t.Width || y >= t.Height {
					continue
				}
				binary.BigEndian.PutUint16(tile[2*i:], at(x, y))
			}
		}
	})
}

// reader fetches source pixels by coordinate.
type reader struct {
	src    *Source
	stride int
}

func (r reader) word32(x, y int) uint32 {
	o := (y*r.stride + x) * 4
	return binary.LittleEndian.Uint32(r.src.Pix[o:])
}

func (r reader) word16(x, y int) uint16 {
	o := (y*r.stride + x) * 2
	return binary.LittleEndian.Uint16(r.src.Pix[o:])
}

func (r reader) index(x, y int) int {
	if r.src.Format.BytesPerPixel() == 1 {
		return int(r.src.Pix[y*r.stride+x])
	}
	return int(r.word16(x, y))
}

func (r reader) argb32(x, y int) (a, rr, g, b byte) {
	c := r.word32(x, y)
	return byte(c >> 24), byte(c >> 16), byte(c >> 8), byte(c)
}

func (r reader) rgb32(x, y int) (a, rr, g, b byte) {
	c := r.word32(x, y)
	return 0xFF, byte(c >> 16), byte(c >> 8), byte(c)
}

func (r reader) paletteEntry(x, y int) (uint32, bool) {
	i := r.index(x, y)
	if i >= len(r.src.Palette) {
		return 0, false
	}
	return r.src.Palette[i], true
}

func (r reader) paletteOpaque(x, y int) uint16 {
	c, ok := r.paletteEntry(x, y)
	if !ok {
		return 0
	}
	return PackRGB555(byte(c>>16), byte(c>>8), byte(c))
}

func (r reader) paletteAlpha(x, y int) uint16 {
	c, ok := r.paletteEntry(x, y)
	if !ok {
		return 0
	}
	return PackRGB4A3(byte(c>>16), byte(c>>8), byte(c), byte(c>>24))
}

func (r reader) rgb15(x, y int) uint16 {
	return RGB15ToRGB5A3(r.word16(x, y))
}

// PackRGB555 encodes an opaque RGB5A3 texel.
func PackRGB555(r, g, b byte) uint16 {
	return 0x8000 | uint16(r>>3)<<10 | uint16(g>>3)<<5 | uint16(b>>3)
}

// PackRGB4A3 encodes a translucent RGB5A3 texel. Alpha keeps its top three
// bits, each color channel its top four.
func PackRGB4A3(r, g, b, a byte) uint16 {
	return uint16(a>>5)<<12 | uint16(r>>4)<<8 | uint16(g>>4)<<4 | uint16(b>>4)
}

// RGB15ToRGB5A3 reinterprets a packed RGB15 word. The low bit selects the
// opaque branch.
func RGB15ToRGB5A3(c uint16) uint16 {
	if c&1 != 0 {
		return 0x8000 | (c>>11&0x1F)<<10 | (c>>6&0x1F)<<5 | (c >> 1 & 0x1F)
	}
	return (c>>12&0xF)<<8 | (c>>7&0xF)<<4 | (c >> 2 & 0xF)
}
