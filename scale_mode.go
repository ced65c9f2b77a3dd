package gxdraw

import "fmt"

// ScaleMode describes how the blit area maps onto a hardware-scaled
// surface.
type ScaleMode struct {
	Name string

	// IsScale is set when the content is rendered at a hardware scale size
	// and stretched to the blit area.
	IsScale bool

	// IsYUV is set for overlay modes that expect YUV source data.
	IsYUV bool

	// MulWidth and MulHeight multiply the blit size to get the hardware
	// scale size.
	MulWidth  int
	MulHeight int
}

var scaleModes = []ScaleMode{
	{Name: "none"},
	{Name: "async"},
	{Name: "yv12", IsScale: true, IsYUV: true, MulWidth: 1, MulHeight: 1},
	{Name: "yv12x2", IsScale: true, IsYUV: true, MulWidth: 2, MulHeight: 2},
	{Name: "yuy2", IsScale: true, IsYUV: true, MulWidth: 1, MulHeight: 1},
	{Name: "yuy2x2", IsScale: true, IsYUV: true, MulWidth: 2, MulHeight: 1},
}

// ScaleModeNone is the default mode.
var ScaleModeNone = scaleModes[0]

// ScaleModes returns all known modes in table order.
func ScaleModes() []ScaleMode {
	return append([]ScaleMode(nil), scaleModes...)
}

// ScaleModeName returns the name of mode i.
func ScaleModeName(i int) (string, bool) {
	if i < 0 || i >= len(scaleModes) {
		return "", false
	}
	return scaleModes[i].Name, true
}

// ScaleModeIndex returns the table index of the named mode, or -1.
func ScaleModeIndex(name string) int {
	for i, m := range scaleModes {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// ParseScaleMode looks a mode up by name.
func ParseScaleMode(name string) (ScaleMode, error) {
	i := ScaleModeIndex(name)
	if i < 0 {
		return ScaleMode{}, fmt.Errorf("%w: %q", ErrUnknownScaleMode, name)
	}
	return scaleModes[i], nil
}

// String returns the mode name.
func (m ScaleMode) String() string {
	return m.Name
}

// HardwareSize returns the hardware scale size for a blit area.
func (m ScaleMode) HardwareSize(blitWidth, blitHeight int) (int, int) {
	if !m.IsScale {
		return blitWidth, blitHeight
	}
	return blitWidth * m.MulWidth, blitHeight * m.MulHeight
}
