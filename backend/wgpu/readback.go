//go:build !nogpu

package wgpu

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/gxdraw/backend"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the required BytesPerRow alignment of
// texture-to-buffer copies.
const copyPitchAlignment = 256

// FrontBuffer reads the front display texture back into an image. It must
// be called from the drawer goroutine or after drawing stopped.
func (d *Device) FrontBuffer() (*image.NRGBA, error) {
	if !d.Ready() {
		return nil, backend.ErrNotInitialized
	}
	src := d.display[d.Framebuffer()]

	w, h := uint32(d.mode.Width), uint32(d.mode.Height)
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gxdraw_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	err = d.submit("gxdraw_readback", func(enc hal.CommandEncoder) {
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: src,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopyDst,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
		enc.CopyTextureToBuffer(src, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: src, Aspect: gputypes.TextureAspectAll},
			Size:         d.extent(),
		}})
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: src,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageCopyDst,
			},
		}})
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}

	mapping, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("wgpu: map staging buffer: %w", err)
	}
	defer func() { _ = d.device.UnmapBuffer(staging) }()
	data := unsafe.Slice((*byte)(mapping.Ptr), size)

	img := image.NewNRGBA(image.Rect(0, 0, int(w), int(h)))
	for y := range int(h) {
		row := data[y*int(alignedBytesPerRow):]
		copy(img.Pix[y*img.Stride:(y+1)*img.Stride], row[:bytesPerRow])
	}
	return img, nil
}
