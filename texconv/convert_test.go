package texconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/color"
	"sync"
	"testing"
	"unsafe"
)

// fill32 builds a w*h buffer of little-endian 32-bit words.
func fill32(w, h int, c uint32) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		binary.LittleEndian.PutUint32(pix[i*4:], c)
	}
	return pix
}

// fill16 builds a w*h buffer of little-endian 16-bit words.
func fill16(w, h int, c uint16) []byte {
	pix := make([]byte, w*h*2)
	for i := 0; i < w*h; i++ {
		binary.LittleEndian.PutUint16(pix[i*2:], c)
	}
	return pix
}

// paddedTexel decodes the texel at (x, y) of the padded texture.
func paddedTexel(t *Tiled, x, y int) color.NRGBA {
	cols, _ := t.Tiles()
	tile := t.Data[((y/4)*cols+x/4)*t.Format.TileBytes():]
	return TexelAt(t.Format, tile, (y&3)*4+x&3)
}

func TestConvertOpaqueSourcesStayOpaque(t *testing.T) {
	palette := []uint32{0xFF102030, 0xFFFFFFFF}
	tests := []struct {
		name string
		src  Source
		want TextureFormat
	}{
		{"argb32", Source{Width: 4, Height: 4, Format: ARGB32, Pix: fill32(4, 4, 0xFF336699)}, RGBA8},
		{"rgb32", Source{Width: 4, Height: 4, Format: RGB32, Pix: fill32(4, 4, 0x00336699)}, RGBA8},
		{"palette16", Source{Width: 4, Height: 4, Format: Palette16, Pix: fill16(4, 4, 1), Palette: palette}, RGB5A3},
		{"palettea16", Source{Width: 4, Height: 4, Format: PaletteA16, Pix: fill16(4, 4, 0), Palette: palette}, RGB5A3},
		{"indexed8", Source{Width: 4, Height: 4, Format: Indexed8, Pix: make([]byte, 16), Palette: palette}, RGB5A3},
		{"indexeda8", Source{Width: 4, Height: 4, Format: IndexedA8, Pix: make([]byte, 16), Palette: palette}, RGB5A3},
		{"rgb15", Source{Width: 4, Height: 4, Format: RGB15, Pix: fill16(4, 4, 0x7C01)}, RGB5A3},
		{"yuy16", Source{Width: 4, Height: 4, Format: YUY16, Pix: fill16(4, 4, 0x8080)}, RGBA8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiled, err := Convert(&tt.src)
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			if tiled.Format != tt.want {
				t.Errorf("format = %v, want %v", tiled.Format, tt.want)
			}
			img := Untile(tiled)
			for i := 3; i < len(img.Pix); i += 4 {
				if img.Pix[i] != 0xFF {
					t.Fatalf("texel %d alpha = %#x, want 0xff", i/4, img.Pix[i])
				}
			}
		})
	}
}

func TestConvertRGBA8TileLayout(t *testing.T) {
	src := Source{Width: 4, Height: 4, Format: ARGB32, Pix: make([]byte, 64)}
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(src.Pix[i*4:], uint32(i)<<24|0x10<<16|0x20<<8|uint32(i))
	}

	tiled, err := Convert(&src)
	if err != nil {
		t.Fatal(err)
	}
	if len(tiled.Data) != 64 {
		t.Fatalf("len = %d, want 64", len(tiled.Data))
	}
	for i := 0; i < 16; i++ {
		ar := tiled.Data[2*i : 2*i+2]
		gb := tiled.Data[32+2*i : 32+2*i+2]
		if ar[0] != byte(i) || ar[1] != 0x10 {
			t.Errorf("texel %d AR = % x", i, ar)
		}
		if gb[0] != 0x20 || gb[1] != byte(i) {
			t.Errorf("texel %d GB = % x", i, gb)
		}
	}
}

func TestConvertTileOrder(t *testing.T) {
	// 8x4 source: left tile red, right tile blue.
	src := Source{Width: 8, Height: 4, Format: RGB32, Pix: make([]byte, 8*4*4)}
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			c := uint32(0xFF0000)
			if x >= 4 {
				c = 0x0000FF
			}
			binary.LittleEndian.PutUint32(src.Pix[(y*8+x)*4:], c)
		}
	}
	tiled, err := Convert(&src)
	if err != nil {
		t.Fatal(err)
	}
	if got := tiled.Data[1]; got != 0xFF {
		t.Errorf("first tile red = %#x, want 0xff", got)
	}
	if got := tiled.Data[64+33]; got != 0xFF {
		t.Errorf("second tile blue = %#x, want 0xff", got)
	}
}

func TestConvertPaddingIsTransparent(t *testing.T) {
	tests := []struct {
		name string
		src  Source
	}{
		{"rgba8", Source{Width: 5, Height: 3, Format: ARGB32, Pix: fill32(5, 3, 0xFFFFFFFF)}},
		{"rgb5a3", Source{Width: 6, Height: 7, Format: RGB15, Pix: fill16(6, 7, 0xFFFF)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiled, err := Convert(&tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if tiled.PaddedWidth%4 != 0 || tiled.PaddedHeight%4 != 0 {
				t.Fatalf("padded size %dx%d", tiled.PaddedWidth, tiled.PaddedHeight)
			}
			for y := 0; y < tiled.PaddedHeight; y++ {
				for x := 0; x < tiled.PaddedWidth; x++ {
					c := paddedTexel(tiled, x, y)
					inside := x < tt.src.Width && y < tt.src.Height
					if !inside && c != (color.NRGBA{}) {
						t.Errorf("padding texel (%d,%d) = %v", x, y, c)
					}
					if inside && c.A != 0xFF {
						t.Errorf("texel (%d,%d) alpha = %d", x, y, c.A)
					}
				}
			}
		})
	}
}

func TestConvertRowStride(t *testing.T) {
	// Two visible pixels per row, stride of three; the hidden column is red.
	src := Source{Width: 2, Height: 2, RowPixels: 3, Format: ARGB32, Pix: make([]byte, 3*2*4)}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			c := uint32(0xFF00FF00)
			if x == 2 {
				c = 0xFFFF0000
			}
			binary.LittleEndian.PutUint32(src.Pix[(y*3+x)*4:], c)
		}
	}
	tiled, err := Convert(&src)
	if err != nil {
		t.Fatal(err)
	}
	img := Untile(tiled)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if c := img.NRGBAAt(x, y); c != (color.NRGBA{G: 0xFF, A: 0xFF}) {
				t.Errorf("(%d,%d) = %v, want green", x, y, c)
			}
		}
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want error
	}{
		{"unknown format", Source{Width: 4, Height: 4, Format: PixelFormat(99), Pix: make([]byte, 64)}, ErrUnsupportedFormat},
		{"undefined format", Source{Width: 4, Height: 4, Pix: make([]byte, 64)}, ErrUnsupportedFormat},
		{"zero width", Source{Height: 4, Format: ARGB32}, ErrInvalidSize},
		{"narrow stride", Source{Width: 4, Height: 1, RowPixels: 2, Format: ARGB32, Pix: make([]byte, 64)}, ErrInvalidSize},
		{"huge width", Source{Width: int(^uint(0) >> 2), Height: 1, Format: ARGB32}, ErrInvalidSize},
		{"huge height", Source{Width: 1, Height: MaxDimension + 1, Format: RGB15}, ErrInvalidSize},
		{"huge stride", Source{Width: 4, Height: 1, RowPixels: MaxDimension * 4, Format: ARGB32, Pix: make([]byte, 16)}, ErrInvalidSize},
		{"short buffer", Source{Width: 4, Height: 4, Format: ARGB32, Pix: make([]byte, 63)}, ErrShortBuffer},
		{"no palette", Source{Width: 4, Height: 4, Format: Palette16, Pix: make([]byte, 32)}, ErrMissingPalette},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiled, err := Convert(&tt.src)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tiled != nil {
				t.Error("expected no texture on error")
			}
		})
	}
}

func TestPaletteIndexOutOfRange(t *testing.T) {
	src := Source{Width: 1, Height: 1, Format: Palette16, Pix: fill16(1, 1, 7), Palette: []uint32{0xFFFFFFFF}}
	tiled, err := Convert(&src)
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.BigEndian.Uint16(tiled.Data); got != 0 {
		t.Errorf("texel = %#04x, want 0", got)
	}
}

func TestPaletteEncodings(t *testing.T) {
	const c = 0xA0F08040 // a=0xA0 r=0xF0 g=0x80 b=0x40
	if got, want := PackRGB555(0xF0, 0x80, 0x40), uint16(0x8000|30<<10|16<<5|8); got != want {
		t.Errorf("PackRGB555 = %#04x, want %#04x", got, want)
	}
	if got, want := PackRGB4A3(0xF0, 0x80, 0x40, 0xA0), uint16(5<<12|0xF<<8|8<<4|4); got != want {
		t.Errorf("PackRGB4A3 = %#04x, want %#04x", got, want)
	}

	src := Source{Width: 1, Height: 1, Format: IndexedA8, Pix: []byte{0}, Palette: []uint32{c}}
	tiled, err := Convert(&src)
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.BigEndian.Uint16(tiled.Data); got != PackRGB4A3(0xF0, 0x80, 0x40, 0xA0) {
		t.Errorf("texel = %#04x", got)
	}
}

func TestRGB15ToRGB5A3(t *testing.T) {
	tests := []struct {
		in, want uint16
	}{
		{0xFFFF, 0xFFFF},                // opaque white
		{0x0001, 0x8000},                // opaque black
		{0xF800 | 1, 0x8000 | 0x1F<<10}, // opaque red
		{0xFFFE, 0x0FFF},                // transparent, 4 bits per channel
		{0x0000, 0x0000},
	}
	for _, tt := range tests {
		if got := RGB15ToRGB5A3(tt.in); got != tt.want {
			t.Errorf("RGB15ToRGB5A3(%#04x) = %#04x, want %#04x", tt.in, got, tt.want)
		}
	}
}

func TestYCbCrToRGB(t *testing.T) {
	tests := []struct {
		y, cb, cr byte
		r, g, b   byte
	}{
		{235, 128, 128, 255, 255, 255},
		{16, 128, 128, 0, 0, 0},
		{0, 0, 0, 0, 135, 0},
	}
	for _, tt := range tests {
		r, g, b := YCbCrToRGB(tt.y, tt.cb, tt.cr)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("YCbCrToRGB(%d,%d,%d) = %d,%d,%d, want %d,%d,%d",
				tt.y, tt.cb, tt.cr, r, g, b, tt.r, tt.g, tt.b)
		}
	}
}

func TestYUY16SharesChroma(t *testing.T) {
	// Pixel 0 carries Cb, pixel 1 carries Cr; both share the pair.
	src := Source{Width: 2, Height: 1, Format: YUY16, Pix: make([]byte, 4)}
	binary.LittleEndian.PutUint16(src.Pix[0:], 0x40<<8|100) // Cb=0x40, Y=100
	binary.LittleEndian.PutUint16(src.Pix[2:], 0xC0<<8|200) // Cr=0xC0, Y=200

	tiled, err := Convert(&src)
	if err != nil {
		t.Fatal(err)
	}
	img := Untile(tiled)
	for x, luma := range []byte{100, 200} {
		r, g, b := YCbCrToRGB(luma, 0x40, 0xC0)
		want := color.NRGBA{R: r, G: g, B: b, A: 0xFF}
		if got := img.NRGBAAt(x, 0); got != want {
			t.Errorf("pixel %d = %v, want %v", x, got, want)
		}
	}
}

func TestYUY16OddWidthUsesNeutralCr(t *testing.T) {
	src := Source{Width: 1, Height: 1, Format: YUY16, Pix: make([]byte, 2)}
	binary.LittleEndian.PutUint16(src.Pix, 0x80<<8|128)
	tiled, err := Convert(&src)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b := YCbCrToRGB(128, 0x80, 0x80)
	if got := Untile(tiled).NRGBAAt(0, 0); got != (color.NRGBA{R: r, G: g, B: b, A: 0xFF}) {
		t.Errorf("pixel = %v", got)
	}
}

// goRunner converts every row on its own goroutine, last row first.
type goRunner struct{ calls int }

func (r *goRunner) Rows(n int, fn func(row int)) {
	r.calls++
	var wg sync.WaitGroup
	for row := n - 1; row >= 0; row-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(row)
		}()
	}
	wg.Wait()
}

func TestConvertWithRunnerMatchesSerial(t *testing.T) {
	pix32 := make([]byte, 13*9*4)
	pix16 := make([]byte, 13*9*2)
	for i := range pix32 {
		pix32[i] = byte(i * 7)
	}
	for i := range pix16 {
		pix16[i] = byte(i * 3)
	}
	for _, src := range []Source{
		{Width: 13, Height: 9, Format: ARGB32, Pix: pix32},
		{Width: 13, Height: 9, Format: RGB15, Pix: pix16},
		{Width: 13, Height: 9, Format: YUY16, Pix: pix16},
	} {
		want, err := Convert(&src)
		if err != nil {
			t.Fatal(err)
		}
		run := &goRunner{}
		got, err := ConvertWith(&src, run)
		if err != nil {
			t.Fatal(err)
		}
		if run.calls != 1 {
			t.Errorf("%v: runner called %d times, want 1", src.Format, run.calls)
		}
		if !bytes.Equal(got.Data, want.Data) {
			t.Errorf("%v: parallel conversion differs from serial", src.Format)
		}
	}
}

func TestSize(t *testing.T) {
	n, err := Size(&Source{Width: 5, Height: 5, Format: RGB15, Pix: make([]byte, 50)})
	if err != nil {
		t.Fatal(err)
	}
	if n != 8*8*2 {
		t.Errorf("Size = %d, want %d", n, 8*8*2)
	}
}

func TestAllocAligned(t *testing.T) {
	for _, n := range []int{1, 31, 32, 33, 4096} {
		b := AllocAligned(n)
		if len(b) != n || cap(b) != n {
			t.Errorf("AllocAligned(%d): len %d cap %d", n, len(b), cap(b))
		}
		if p := uintptr(unsafe.Pointer(&b[0])); p%Alignment != 0 {
			t.Errorf("AllocAligned(%d) misaligned: %#x", n, p)
		}
	}
	if AllocAligned(0) != nil {
		t.Error("AllocAligned(0) should be nil")
	}
}

func TestDecodeRGB5A3(t *testing.T) {
	tests := []struct {
		in   uint16
		want color.NRGBA
	}{
		{0xFFFF, color.NRGBA{255, 255, 255, 255}},
		{0x8000, color.NRGBA{0, 0, 0, 255}},
		{0x7FFF, color.NRGBA{255, 255, 255, 255}},
		{0x0F00, color.NRGBA{255, 0, 0, 0}},
		{0x3888, color.NRGBA{136, 136, 136, 109}},
	}
	for _, tt := range tests {
		if got := DecodeRGB5A3(tt.in); got != tt.want {
			t.Errorf("DecodeRGB5A3(%#04x) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatStrings(t *testing.T) {
	if ARGB32.String() != "argb32" || YUY16.String() != "yuy16" {
		t.Error("unexpected pixel format names")
	}
	if PixelFormat(200).String() != "PixelFormat(200)" {
		t.Errorf("unknown name = %q", PixelFormat(200).String())
	}
	if RGBA8.String() != "RGBA8" || RGB5A3.String() != "RGB5A3" {
		t.Error("unexpected texture format names")
	}
}
