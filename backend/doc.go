// Package backend provides pluggable gxdraw devices.
//
// The backend package lets gxdraw draw through several device
// implementations. The CPU device lives here and is always available; GPU
// and windowed devices live in subpackages and register themselves when
// imported.
//
// # Device Registration
//
// Devices are registered via init() functions and selected at runtime.
// The software device is automatically registered on import:
//
//	import _ "github.com/gogpu/gxdraw/backend"
//
// Importing a subpackage adds its device:
//
//	import _ "github.com/gogpu/gxdraw/backend/wgpu"
//
// # Device Selection
//
// Use Default() to get the best available device, or Get() to request
// a specific device by name:
//
//	// Get the default (best available) device
//	dev := backend.Default()
//
//	// Or request a specific device
//	dev := backend.Get(backend.BackendSoftware)
//
// InitDefault walks the priority list and returns the first device whose
// Init succeeds. Init is idempotent, so the result can be handed to
// gxdraw.NewRenderer directly:
//
//	dev, err := backend.InitDefault(gxdraw.DefaultDisplayMode)
//	if err != nil {
//		log.Fatal(err)
//	}
//	r, err := gxdraw.NewRenderer(dev)
//
// # Available Devices
//
//   - "wgpu": GPU rendering via the gogpu/wgpu HAL (build tag !nogpu)
//   - "ebiten": windowed presentation via Ebitengine (build tag !headless)
//   - "software": CPU rasterizer with two display buffers (always available)
package backend
