package gxdraw

import (
	"fmt"
	"time"
)

// RedrawPolicy decides what the drawer does when the primitive list has not
// changed since the last frame.
type RedrawPolicy uint8

const (
	// RedrawLast draws the current list every frame, changed or not.
	RedrawLast RedrawPolicy = iota

	// IdleUntilChanged skips drawing while the list version and window are
	// unchanged, still pacing on vsync.
	IdleUntilChanged
)

// String returns the policy name.
func (p RedrawPolicy) String() string {
	switch p {
	case RedrawLast:
		return "redraw-last"
	case IdleUntilChanged:
		return "idle-until-changed"
	}
	return fmt.Sprintf("RedrawPolicy(%d)", uint8(p))
}

// DefaultRetryInterval is how long the drawer waits before retrying a frame
// the device was not ready for.
const DefaultRetryInterval = 10 * time.Millisecond

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := gxdraw.NewRenderer(dev,
//	    gxdraw.WithCenter(true, true),
//	    gxdraw.WithSafeArea(0.9),
//	    gxdraw.WithTextureBudget(32<<20),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	mode      DisplayMode
	dispatch  DispatchConfig
	redraw    RedrawPolicy
	retry     time.Duration
	budget    uint64
	scaleMode ScaleMode
	hwScaleW  int
	hwScaleH  int
	workers   int
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		mode:      DefaultDisplayMode,
		dispatch:  DispatchConfig{SafeArea: 1},
		redraw:    RedrawLast,
		retry:     DefaultRetryInterval,
		scaleMode: ScaleModeNone,
	}
}

// WithDisplayMode sets the mode passed to Device.Init.
func WithDisplayMode(m DisplayMode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithCenter enables horizontal and vertical centering of the blit area.
func WithCenter(h, v bool) Option {
	return func(o *options) {
		o.dispatch.CenterH = h
		o.dispatch.CenterV = v
	}
}

// WithSafeArea sets the fraction of the window kept inside the overscan
// safe area. Values outside (0, 1] are ignored.
func WithSafeArea(f float64) Option {
	return func(o *options) {
		if f > 0 && f <= 1 {
			o.dispatch.SafeArea = f
		}
	}
}

// WithRedrawPolicy selects the behavior for unchanged primitive lists.
func WithRedrawPolicy(p RedrawPolicy) Option {
	return func(o *options) {
		o.redraw = p
	}
}

// WithRetryInterval sets the pause after a frame dropped because the device
// was not ready.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retry = d
		}
	}
}

// WithTextureBudget limits the bytes held by cached textures. Zero means
// unlimited.
func WithTextureBudget(bytes uint64) Option {
	return func(o *options) {
		o.budget = bytes
	}
}

// WithScaleMode selects the scale mode used by XYToRenderTarget.
func WithScaleMode(m ScaleMode) Option {
	return func(o *options) {
		o.scaleMode = m
	}
}

// WithHardwareScale overrides the hardware scale size derived from the scale
// mode.
func WithHardwareScale(width, height int) Option {
	return func(o *options) {
		o.hwScaleW, o.hwScaleH = width, height
	}
}

// WithConversionWorkers converts the tile rows of each texture on n worker
// goroutines. Values below 2 convert on the drawer goroutine.
func WithConversionWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}
