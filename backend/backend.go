package backend

import (
	"errors"

	"github.com/gogpu/gxdraw"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU rasterizing device.
	BackendSoftware = "software"
	// BackendEbiten is the name of the windowed device presenting through
	// Ebitengine.
	BackendEbiten = "ebiten"
	// BackendWGPU is the name of the Pure Go GPU device (gogpu/wgpu HAL).
	BackendWGPU = "wgpu"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrClosed is returned by operations on a closed device.
	ErrClosed = errors.New("backend: device closed")
)

// DeviceFactory creates a new, uninitialized device.
type DeviceFactory func() gxdraw.Device
