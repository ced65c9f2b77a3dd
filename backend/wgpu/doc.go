// Package wgpu provides a GPU gxdraw device built on the gogpu/wgpu HAL.
//
// The device renders into an offscreen RGBA8 framebuffer (the embedded
// framebuffer) and copies finished frames into one of two display textures.
// It uses Vulkan through the pure Go gogpu/wgpu implementation, or any HAL
// device shared by a host application through SetDeviceProvider.
//
// # Usage
//
// The device registers itself as "wgpu" when the package is imported:
//
//	import _ "github.com/gogpu/gxdraw/backend/wgpu"
//
//	dev, err := backend.InitDefault(gxdraw.DefaultDisplayMode)
//
// # Rendering model
//
// Draw calls between two DrawDone calls are recorded on the CPU: vertices
// go into a staging slice and consecutive quads with the same blend mode
// and texture are merged into one indexed draw. DrawDone uploads the
// vertex and index data with Queue.WriteBuffer, encodes one render pass and
// waits for the GPU. Each blend mode has its own render pipeline.
//
// Textures are decoded from their tiled layout on upload and written with
// Queue.WriteTexture. Every texture owns a bind group holding the viewport
// uniform, its view and a nearest-neighbor sampler.
//
// # Build tags
//
// The package is excluded with the nogpu build tag.
package wgpu
