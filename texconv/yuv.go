package texconv

// neutralChroma is substituted for a missing Cr sample.
const neutralChroma = 0x80

func (r reader) yuy16(x, y int) (a, rr, g, b byte) {
	even := x &^ 1
	luma := byte(r.word16(x, y))
	cb := byte(r.word16(even, y) >> 8)
	cr := byte(neutralChroma)
	if even+1 < r.src.Width {
		cr = byte(r.word16(even+1, y) >> 8)
	}
	rr, g, b = YCbCrToRGB(luma, cb, cr)
	return 0xFF, rr, g, b
}

// YCbCrToRGB converts one BT.601 studio-swing sample with the integer
// coefficients 298, 409, 100, 208 and 516.
func YCbCrToRGB(y, cb, cr byte) (r, g, b byte) {
	common := 298*int32(y) - 56992
	r = clamp16Shift8(common + 409*int32(cr))
	g = clamp16Shift8(common - 100*int32(cb) - 208*int32(cr) + 91776)
	b = clamp16Shift8(common + 516*int32(cb) - 13696)
	return r, g, b
}

func clamp16Shift8(v int32) byte {
	switch {
	case v < 0:
		return 0
	case v > 0xFFFF:
		return 0xFF
	default:
		return byte(v >> 8)
	}
}
