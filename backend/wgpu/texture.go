//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/gxdraw"
	"github.com/gogpu/gxdraw/texconv"
	"github.com/gogpu/wgpu/hal"
)

// gpuTexture is the device state stored in gxdraw.Texture.Handle.
type gpuTexture struct {
	texture hal.Texture
	view    hal.TextureView
	group   hal.BindGroup
	width   uint32
	height  uint32
}

// createTexture decodes the tiled texels and uploads them into a sampled
// RGBA8 texture with its bind group.
func (d *Device) createTexture(tex *gxdraw.Texture) (*gpuTexture, error) {
	img := texconv.Untile(tex.Tiled())
	w, h := uint32(img.Rect.Dx()), uint32(img.Rect.Dy())
	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	gt := &gpuTexture{width: w, height: h}
	texture, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         fmt.Sprintf("gxdraw_texture_%x", uintptr(tex.ID)),
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture: %w", err)
	}
	gt.texture = texture

	if err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: texture, Aspect: gputypes.TextureAspectAll},
		img.Pix,
		&hal.ImageDataLayout{BytesPerRow: uint32(img.Stride), RowsPerImage: h},
		&size,
	); err != nil {
		d.destroyTexture(gt)
		return nil, fmt.Errorf("write texture: %w", err)
	}

	view, err := d.device.CreateTextureView(texture, &hal.TextureViewDescriptor{
		Label: "gxdraw_texture_view",
	})
	if err != nil {
		d.destroyTexture(gt)
		return nil, fmt.Errorf("create texture view: %w", err)
	}
	gt.view = view

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "gxdraw_texture_bind_group",
		Layout: d.pipes.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: d.uniform.NativeHandle(),
				Size:   viewportUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: d.pipes.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		d.destroyTexture(gt)
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	gt.group = group
	return gt, nil
}

func (d *Device) destroyTexture(gt *gpuTexture) {
	if gt.group != nil {
		d.device.DestroyBindGroup(gt.group)
		gt.group = nil
	}
	if gt.view != nil {
		d.device.DestroyTextureView(gt.view)
		gt.view = nil
	}
	if gt.texture != nil {
		d.device.DestroyTexture(gt.texture)
		gt.texture = nil
	}
}
