package texconv

import (
	"encoding/binary"
	"image"
	"image/color"
)

// Untile decodes t into a straight-alpha image of its unpadded size.
func Untile(t *Tiled) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	tileBytes := t.Format.TileBytes()
	cols, _ := t.Tiles()
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			c := TexelAt(t.Format, t.Data[((y/4)*cols+x/4)*tileBytes:], (y&3)*4+x&3)
			o := img.PixOffset(x, y)
			img.Pix[o+0] = c.R
			img.Pix[o+1] = c.G
			img.Pix[o+2] = c.B
			img.Pix[o+3] = c.A
		}
	}
	return img
}

// TexelAt decodes texel i (0..15) of the tile starting at tile.
func TexelAt(f TextureFormat, tile []byte, i int) color.NRGBA {
	switch f {
	case RGBA8:
		return color.NRGBA{R: tile[2*i+1], G: tile[32+2*i], B: tile[32+2*i+1], A: tile[2*i]}
	case RGB5A3:
		return DecodeRGB5A3(binary.BigEndian.Uint16(tile[2*i:]))
	}
	return color.NRGBA{}
}

// DecodeRGB5A3 expands one RGB5A3 texel to 8 bits per channel.
func DecodeRGB5A3(v uint16) color.NRGBA {
	if v&0x8000 != 0 {
		return color.NRGBA{
			R: expand5(byte(v >> 10 & 0x1F)),
			G: expand5(byte(v >> 5 & 0x1F)),
			B: expand5(byte(v & 0x1F)),
			A: 0xFF,
		}
	}
	return color.NRGBA{
		R: byte(v>>8&0xF) * 17,
		G: byte(v>>4&0xF) * 17,
		B: byte(v&0xF) * 17,
		A: expand3(byte(v >> 12 & 0x7)),
	}
}

func expand5(v byte) byte { return v<<3 | v>>2 }

func expand3(v byte) byte { return v<<5 | v<<2 | v>>1 }
