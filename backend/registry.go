package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/gxdraw"
)

// registry holds registered devices.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]DeviceFactory)
	// Priority order for device selection (first available wins).
	// GPU first, then the windowed device, software as fallback.
	backendPriority = []string{BackendWGPU, BackendEbiten, BackendSoftware}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a device with the same name is already registered, it will be replaced.
func Register(name string, factory DeviceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a device from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered device names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a device with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Get returns a new device by name.
// Returns nil if the device is not registered.
func Get(name string) gxdraw.Device {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best available device based on priority.
// Priority order: wgpu > ebiten > software
// Returns nil if no devices are registered.
func Default() gxdraw.Device {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := factories[name]; ok {
			if d := factory(); d != nil {
				return d
			}
		}
	}

	// Fallback: first available in name order.
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if d := factories[name](); d != nil {
			return d
		}
	}
	return nil
}

// MustDefault returns the default device or panics.
func MustDefault() gxdraw.Device {
	d := Default()
	if d == nil {
		panic("backend: no backend available")
	}
	return d
}

// InitDefault initializes the best device that accepts mode. A device
// whose Init fails is closed and the next one in priority order is tried.
func InitDefault(mode gxdraw.DisplayMode) (gxdraw.Device, error) {
	registryMu.RLock()
	order := make([]string, 0, len(factories))
	seen := make(map[string]bool, len(factories))
	for _, name := range backendPriority {
		if _, ok := factories[name]; ok {
			order = append(order, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(factories))
	for name := range factories {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	registryMu.RUnlock()
	sort.Strings(rest)
	order = append(order, rest...)

	if len(order) == 0 {
		return nil, ErrBackendNotAvailable
	}

	var lastErr error
	for _, name := range order {
		d := Get(name)
		if d == nil {
			continue
		}
		if err := d.Init(mode); err != nil {
			gxdraw.Logger().Info("backend: init failed, trying next", "backend", name, "err", err)
			_ = d.Close()
			lastErr = fmt.Errorf("backend %s: %w", name, err)
			continue
		}
		gxdraw.Logger().Info("backend: selected", "backend", name)
		return d, nil
	}
	if lastErr == nil {
		lastErr = ErrBackendNotAvailable
	}
	return nil, lastErr
}
