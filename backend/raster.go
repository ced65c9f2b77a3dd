package backend

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gxdraw"
)

// rgba is a straight-alpha color with components in 0..1.
type rgba struct {
	r, g, b, a float32
}

func fromRGBA8(c color.RGBA) rgba {
	return rgba{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

func fromNRGBA(c color.NRGBA) rgba {
	return rgba{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

func (c rgba) mul(o rgba) rgba {
	return rgba{c.r * o.r, c.g * o.g, c.b * o.b, c.a * o.a}
}

func to8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xFF
	}
	return uint8(v*255 + 0.5)
}

// blendPixel combines src into the framebuffer pixel at offset o.
func blendPixel(pix []uint8, o int, src rgba, mode gxdraw.BlendMode) {
	dst := rgba{
		float32(pix[o+0]) / 255,
		float32(pix[o+1]) / 255,
		float32(pix[o+2]) / 255,
		float32(pix[o+3]) / 255,
	}
	var out rgba
	switch mode {
	case gxdraw.BlendNone:
		out = src
	case gxdraw.BlendMultiply:
		out = src.mul(dst)
	case gxdraw.BlendAdd:
		a := src.a
		out = rgba{dst.r + src.r*a, dst.g + src.g*a, dst.b + src.b*a, dst.a + a}
	default:
		a := src.a
		ia := 1 - a
		out = rgba{
			src.r*a + dst.r*ia,
			src.g*a + dst.g*ia,
			src.b*a + dst.b*ia,
			a + dst.a*ia,
		}
	}
	pix[o+0] = to8(out.r)
	pix[o+1] = to8(out.g)
	pix[o+2] = to8(out.b)
	pix[o+3] = to8(out.a)
}

// sample returns the texel nearest to (u, v), clamped to the edges. A nil
// image samples as opaque white.
func sample(img *image.NRGBA, u, v float32) rgba {
	if img == nil {
		return rgba{1, 1, 1, 1}
	}
	b := img.Bounds()
	x := clampInt(int(math.Floor(float64(u*float32(b.Dx())))), 0, b.Dx()-1)
	y := clampInt(int(math.Floor(float64(v*float32(b.Dy())))), 0, b.Dy()-1)
	return fromNRGBA(img.NRGBAAt(b.Min.X+x, b.Min.Y+y))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// rasterQuad fills pixels whose centers lie inside the rectangle spanned by
// v[0] (top-left) and v[2] (bottom-right).
func (d *SoftwareDevice) rasterQuad(v [4]gxdraw.Vertex) {
	x0, y0 := v[0].X, v[0].Y
	x1, y1 := v[2].X, v[2].Y
	if x0 == x1 || y0 == y1 {
		return
	}
	bounds := d.efb.Bounds()
	px0 := clampInt(int(math.Ceil(float64(min(x0, x1))-0.5)), bounds.Min.X, bounds.Max.X)
	px1 := clampInt(int(math.Ceil(float64(max(x0, x1))-0.5)), bounds.Min.X, bounds.Max.X)
	py0 := clampInt(int(math.Ceil(float64(min(y0, y1))-0.5)), bounds.Min.Y, bounds.Max.Y)
	py1 := clampInt(int(math.Ceil(float64(max(y0, y1))-0.5)), bounds.Min.Y, bounds.Max.Y)

	tint := fromRGBA8(v[0].Color)
	for py := py0; py < py1; py++ {
		t := (float32(py) + 0.5 - y0) / (y1 - y0)
		// Left edge TL->BL, right edge TR->BR.
		lu, lv := lerp(v[0].U, v[1].U, t), lerp(v[0].V, v[1].V, t)
		ru, rv := lerp(v[3].U, v[2].U, t), lerp(v[3].V, v[2].V, t)
		o := d.efb.PixOffset(px0, py)
		for px := px0; px < px1; px, o = px+1, o+4 {
			s := (float32(px) + 0.5 - x0) / (x1 - x0)
			texel := sample(d.bound, lerp(lu, ru, s), lerp(lv, rv, s))
			blendPixel(d.efb.Pix, o, texel.mul(tint), d.blend)
		}
	}
}

// rasterLine strokes the segment as a quad of the given width and blends
// the vertex color weighted by coverage.
func (d *SoftwareDevice) rasterLine(v [2]gxdraw.Vertex, width float32) {
	q, ok := gxdraw.LineQuad(v, width)
	if !ok {
		return
	}

	b := d.efb.Bounds()
	d.raster.Reset(b.Dx(), b.Dy())
	d.raster.MoveTo(q[0].X, q[0].Y)
	d.raster.LineTo(q[3].X, q[3].Y)
	d.raster.LineTo(q[2].X, q[2].Y)
	d.raster.LineTo(q[1].X, q[1].Y)
	d.raster.ClosePath()

	minX, minY := q[0].X, q[0].Y
	maxX, maxY := minX, minY
	for _, p := range q[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	area := image.Rect(
		int(math.Floor(float64(minX))),
		int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX)))+1,
		int(math.Ceil(float64(maxY)))+1,
	).Intersect(b)
	if area.Empty() {
		return
	}

	clear(d.mask.Pix)
	d.raster.Draw(d.mask, b, image.Opaque, image.Point{})

	c := fromRGBA8(v[0].Color).mul(sample(d.bound, 0, 0))
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			cov := d.mask.AlphaAt(x, y).A
			if cov == 0 {
				continue
			}
			src := c
			src.a *= float32(cov) / 255
			blendPixel(d.efb.Pix, d.efb.PixOffset(x, y), src, d.blend)
		}
	}
}
