package gxdraw

// Window is the drawing target handed to Renderer.WindowDraw.
type Window struct {
	// Width and Height are the output surface size.
	Width  int
	Height int

	// BlitWidth and BlitHeight are the size of the rendered content.
	BlitWidth  int
	BlitHeight int

	// Primitives is the list drawn every frame.
	Primitives *PrimitiveList
}

// NewWindow creates a window whose content fills the surface, with an
// empty primitive list guarded by an internal mutex.
func NewWindow(width, height int) *Window {
	return &Window{
		Width:      width,
		Height:     height,
		BlitWidth:  width,
		BlitHeight: height,
		Primitives: NewPrimitiveList(nil),
	}
}
