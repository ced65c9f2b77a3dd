//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/gxdraw"
	"github.com/gogpu/gxdraw/backend"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

func init() {
	backend.Register(backend.BackendWGPU, func() gxdraw.Device {
		return NewDevice(DefaultConfig())
	})
}

// ErrNoAdapter is returned by Init when the HAL backend exposes no adapter.
var ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

// Config configures a Device.
type Config struct {
	// ClearColor is the framebuffer color after every CopyDisplay.
	ClearColor gputypes.Color

	// Backend is the HAL backend opened when no device provider is set.
	Backend gputypes.Backend

	// SPIRV hands the HAL SPIR-V compiled by naga instead of WGSL source.
	SPIRV bool
}

// DefaultConfig returns an opaque black clear color on Vulkan.
func DefaultConfig() Config {
	return Config{
		ClearColor: gputypes.Color{A: 1},
		Backend:    gputypes.BackendVulkan,
	}
}

// Stats counts the work done by a Device.
type Stats struct {
	Quads        uint64
	Lines        uint64
	Frames       uint64
	Uploads      uint64
	Releases     uint64
	BlendChanges uint64

	// Passes is the number of render passes submitted.
	Passes uint64

	// DrawCalls is the number of indexed draws across all passes.
	DrawCalls uint64
}

// Device is a gxdraw.Device rendering through the wgpu HAL.
type Device struct {
	cfg Config

	// mu guards the HAL objects against a concurrent Close and the
	// front buffer index.
	mu sync.Mutex

	instance       hal.Instance
	device         hal.Device
	queue          hal.Queue
	externalDevice bool
	adapterName    string

	ready  atomic.Bool
	closed atomic.Bool
	done   chan struct{}
	logger atomic.Pointer[slog.Logger]

	mode    gxdraw.DisplayMode
	pipes   *pipelines
	uniform hal.Buffer
	efb     hal.Texture
	efbView hal.TextureView
	display [2]hal.Texture
	front   int
	vsync   *time.Ticker

	// Drawer-owned state.
	rec       recorder
	vbuf      hal.Buffer
	vcap      uint64
	ibuf      hal.Buffer
	icap      uint64
	scratch   []byte
	blend     gxdraw.BlendMode
	bound     *gpuTexture
	needClear bool
	stats     Stats
}

// NewDevice creates an uninitialized device.
func NewDevice(cfg Config) *Device {
	d := &Device{cfg: cfg, done: make(chan struct{})}
	d.logger.Store(gxdraw.Logger())
	return d
}

// Name returns the backend identifier.
func (d *Device) Name() string {
	return backend.BackendWGPU
}

// SetLogger sets the logger used by the device.
func (d *Device) SetLogger(l *slog.Logger) {
	d.logger.Store(l)
}

// AdapterName returns the name of the GPU in use, if known.
func (d *Device) AdapterName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapterName
}

// SetDeviceProvider makes the device render on a GPU device shared by a
// host application instead of opening its own. It must be called before
// Init. The provider must expose HAL types, either through
// HalDevice() any and HalQueue() any or through Device and Queue.
func (d *Device) SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	if provider == nil {
		return errors.New("wgpu: nil device provider")
	}
	var rawDevice, rawQueue any
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if hp, ok := provider.(halProvider); ok {
		rawDevice, rawQueue = hp.HalDevice(), hp.HalQueue()
	} else {
		rawDevice, rawQueue = provider.Device(), provider.Queue()
	}
	device, ok := rawDevice.(hal.Device)
	if !ok || device == nil {
		return errors.New("wgpu: provider device is not hal.Device")
	}
	queue, ok := rawQueue.(hal.Queue)
	if !ok || queue == nil {
		return errors.New("wgpu: provider queue is not hal.Queue")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ready.Load() {
		return errors.New("wgpu: SetDeviceProvider after Init")
	}
	if !d.externalDevice && d.device != nil {
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.device = device
	d.queue = queue
	d.externalDevice = true

	info := provider.AdapterInfo()
	d.adapterName = info.Name
	if info.Type == gpucontext.AdapterTypeSoftware {
		d.logger.Load().Warn("wgpu: shared device is a software adapter", "adapter", info.Name)
	}
	d.logger.Load().Debug("wgpu: using shared GPU device", "adapter", info.Name)
	return nil
}

// Init opens a GPU device unless one was provided, then creates the
// pipelines, the framebuffer and the two display textures. Init on a
// ready device is a no-op.
func (d *Device) Init(mode gxdraw.DisplayMode) error {
	if d.closed.Load() {
		return backend.ErrClosed
	}
	if d.ready.Load() {
		return nil
	}
	if mode.Width <= 0 || mode.Height <= 0 {
		return fmt.Errorf("wgpu: invalid display mode %dx%d", mode.Width, mode.Height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		if err := d.openDevice(); err != nil {
			return err
		}
	}
	d.mode = mode

	pipes, err := createPipelines(d.device, d.cfg.SPIRV)
	if err != nil {
		d.releaseLocked()
		return err
	}
	d.pipes = pipes

	if err := d.createTargets(); err != nil {
		d.releaseLocked()
		return err
	}

	if mode.RefreshRate > 0 {
		d.vsync = time.NewTicker(time.Duration(float64(time.Second) / mode.RefreshRate))
	}
	d.blend = gxdraw.BlendAlpha
	d.needClear = true
	d.ready.Store(true)
	d.logger.Load().Info("wgpu: device ready",
		"adapter", d.adapterName, "width", mode.Width, "height", mode.Height,
		"refresh", mode.RefreshRate, "spirv", d.cfg.SPIRV)
	return nil
}

func (d *Device) openDevice() error {
	b, ok := hal.GetBackend(d.cfg.Backend)
	if !ok {
		return fmt.Errorf("wgpu: %w: HAL backend %v", backend.ErrBackendNotAvailable, d.cfg.Backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	d.instance = instance
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.adapterName = selected.Info.Name
	return nil
}

// createTargets allocates the framebuffer, the display textures and the
// viewport uniform, and clears all three textures.
func (d *Device) createTargets() error {
	size := d.extent()
	efb, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "gxdraw_efb",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        framebufferFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create framebuffer: %w", err)
	}
	d.efb = efb

	efbView, err := d.device.CreateTextureView(efb, &hal.TextureViewDescriptor{Label: "gxdraw_efb_view"})
	if err != nil {
		return fmt.Errorf("wgpu: create framebuffer view: %w", err)
	}
	d.efbView = efbView

	for i := range d.display {
		tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
			Label:         fmt.Sprintf("gxdraw_display_%d", i),
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        framebufferFormat,
			Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			return fmt.Errorf("wgpu: create display texture %d: %w", i, err)
		}
		d.display[i] = tex
	}

	uniform, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gxdraw_viewport",
		Size:  viewportUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create viewport uniform: %w", err)
	}
	d.uniform = uniform

	var vp [viewportUniformSize]byte
	binary.LittleEndian.PutUint32(vp[0:], math.Float32bits(float32(d.mode.Width)))
	binary.LittleEndian.PutUint32(vp[4:], math.Float32bits(float32(d.mode.Height)))
	if err := d.queue.WriteBuffer(d.uniform, 0, vp[:]); err != nil {
		return fmt.Errorf("wgpu: write viewport uniform: %w", err)
	}

	// Both display buffers start as a copy of the cleared framebuffer.
	return d.submit("gxdraw_init", func(enc hal.CommandEncoder) {
		d.encodeClear(enc)
		d.encodeCopy(enc, 0)
		d.encodeCopy(enc, 1)
	})
}

func (d *Device) extent() hal.Extent3D {
	return hal.Extent3D{Width: uint32(d.mode.Width), Height: uint32(d.mode.Height), DepthOrArrayLayers: 1}
}

// Ready reports whether Init completed.
func (d *Device) Ready() bool {
	return d.ready.Load() && !d.closed.Load()
}

// SetBlendMode selects the pipeline for subsequent draws.
func (d *Device) SetBlendMode(m gxdraw.BlendMode) {
	if m != d.blend {
		d.stats.BlendChanges++
	}
	d.blend = m
}

// UploadTexture creates the GPU texture and bind group for tex.
func (d *Device) UploadTexture(tex *gxdraw.Texture) error {
	if !d.Ready() {
		return backend.ErrNotInitialized
	}
	if tex.Data == nil {
		return fmt.Errorf("wgpu: texture %#x has no data", uintptr(tex.ID))
	}
	gt, err := d.createTexture(tex)
	if err != nil {
		return fmt.Errorf("wgpu: upload %#x: %w", uintptr(tex.ID), err)
	}
	tex.Handle = gt
	d.stats.Uploads++
	return nil
}

// ReleaseTexture destroys the GPU texture of tex. Pending draws that sample
// it are submitted first.
func (d *Device) ReleaseTexture(tex *gxdraw.Texture) {
	gt, ok := tex.Handle.(*gpuTexture)
	tex.Handle = nil
	if !ok || gt == nil || d.device == nil {
		return
	}
	if d.uses(gt) {
		d.DrawDone()
	}
	if d.bound == gt {
		d.bound = nil
	}
	d.destroyTexture(gt)
	d.stats.Releases++
}

func (d *Device) uses(gt *gpuTexture) bool {
	for _, b := range d.rec.batches {
		if b.tex == gt {
			return true
		}
	}
	return false
}

// BindTexture selects the texture sampled by subsequent draws.
func (d *Device) BindTexture(tex *gxdraw.Texture) {
	gt, _ := tex.Handle.(*gpuTexture)
	d.bound = gt
}

// DrawQuad records a quad. Quads without a bound texture are dropped.
func (d *Device) DrawQuad(v [4]gxdraw.Vertex) {
	if !d.Ready() || d.bound == nil {
		return
	}
	if !d.rec.fits(4) {
		d.DrawDone()
	}
	d.rec.quad(v, d.blend, d.bound)
	d.stats.Quads++
}

// DrawLine records a line as a quad of the given width.
func (d *Device) DrawLine(v [2]gxdraw.Vertex, width float32) {
	if !d.Ready() || d.bound == nil {
		return
	}
	if !d.rec.fits(4) {
		d.DrawDone()
	}
	if d.rec.line(v, width, d.blend, d.bound) {
		d.stats.Lines++
	}
}

// DrawDone submits the recorded draws in one render pass and waits for
// the GPU to finish them.
func (d *Device) DrawDone() {
	if !d.Ready() || (d.rec.empty() && !d.needClear) {
		return
	}
	if err := d.flush(); err != nil {
		d.logger.Load().Warn("wgpu: draw failed", "batches", len(d.rec.batches), "err", err)
	}
	d.rec.reset()
}

func (d *Device) flush() error {
	if !d.rec.empty() {
		if err := d.ensureBuffer(&d.vbuf, &d.vcap, uint64(len(d.rec.vertices)),
			gputypes.BufferUsageVertex, "gxdraw_vertices"); err != nil {
			return err
		}
		d.scratch = d.rec.indexBytes(d.scratch)
		if err := d.ensureBuffer(&d.ibuf, &d.icap, uint64(len(d.scratch)),
			gputypes.BufferUsageIndex, "gxdraw_indices"); err != nil {
			return err
		}
		if err := d.queue.WriteBuffer(d.vbuf, 0, d.rec.vertices); err != nil {
			return fmt.Errorf("write vertices: %w", err)
		}
		if err := d.queue.WriteBuffer(d.ibuf, 0, d.scratch); err != nil {
			return fmt.Errorf("write indices: %w", err)
		}
	}
	return d.submit("gxdraw_frame", d.encodeDraws)
}

// encodeDraws records one render pass replaying the batches onto the
// framebuffer, clearing it first when a frame was just copied out.
func (d *Device) encodeDraws(enc hal.CommandEncoder) {
	load := gputypes.LoadOpLoad
	if d.needClear {
		load = gputypes.LoadOpClear
	}
	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "gxdraw_frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       d.efbView,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: d.cfg.ClearColor,
		}},
	})
	if !d.rec.empty() {
		rp.SetViewport(0, 0, float32(d.mode.Width), float32(d.mode.Height), 0, 1)
		rp.SetVertexBuffer(0, d.vbuf, 0)
		rp.SetIndexBuffer(d.ibuf, gputypes.IndexFormatUint16, 0)
		for _, b := range d.rec.batches {
			rp.SetPipeline(d.pipes.pipeline(b.blend))
			rp.SetBindGroup(0, b.tex.group, nil)
			rp.DrawIndexed(b.count, 1, b.first, 0, 0)
			d.stats.DrawCalls++
		}
	}
	rp.End()
	d.needClear = false
	d.stats.Passes++
}

// ensureBuffer grows *buf to hold at least size bytes.
func (d *Device) ensureBuffer(buf *hal.Buffer, capacity *uint64, size uint64, usage gputypes.BufferUsage, label string) error {
	if *buf != nil && *capacity >= size {
		return nil
	}
	newCap := max(size, 2**capacity, 4096)
	nb, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  newCap,
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create %s buffer: %w", label, err)
	}
	if *buf != nil {
		d.device.DestroyBuffer(*buf)
	}
	*buf, *capacity = nb, newCap
	return nil
}

func (d *Device) encodeClear(enc hal.CommandEncoder) {
	enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "gxdraw_clear_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       d.efbView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: d.cfg.ClearColor,
		}},
	}).End()
}

// encodeCopy copies the framebuffer into display texture fb.
func (d *Device) encodeCopy(enc hal.CommandEncoder, fb int) {
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.efb,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	enc.CopyTextureToTexture(d.efb, d.display[fb], []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{Texture: d.efb, Aspect: gputypes.TextureAspectAll},
		DstBase: hal.ImageCopyTexture{Texture: d.display[fb], Aspect: gputypes.TextureAspectAll},
		Size:    d.extent(),
	}})
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.efb,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
}

// submit encodes one command buffer, submits it and waits for the GPU.
func (d *Device) submit(label string, record func(hal.CommandEncoder)) error {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	record(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	return nil
}

// CopyDisplay copies the framebuffer into display texture fb, makes it the
// front buffer and schedules a clear of the framebuffer.
func (d *Device) CopyDisplay(fb int) {
	if !d.Ready() {
		return
	}
	fb &= 1
	d.DrawDone()
	if err := d.submit("gxdraw_copy_display", func(enc hal.CommandEncoder) {
		d.encodeCopy(enc, fb)
	}); err != nil {
		d.logger.Load().Warn("wgpu: copy display failed", "fb", fb, "err", err)
		return
	}
	d.mu.Lock()
	d.front = fb
	d.mu.Unlock()
	d.needClear = true
	d.stats.Frames++
}

// WaitVSync blocks until the next tick when a refresh rate was set.
func (d *Device) WaitVSync() error {
	if d.closed.Load() {
		return backend.ErrClosed
	}
	if d.vsync == nil {
		return nil
	}
	select {
	case <-d.vsync.C:
		return nil
	case <-d.done:
		return backend.ErrClosed
	}
}

// Framebuffer returns the index of the front display texture.
func (d *Device) Framebuffer() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.front
}

// Stats returns work counters. It must be called from the drawer goroutine
// or after drawing stopped.
func (d *Device) Stats() Stats {
	return d.stats
}

// Close destroys all GPU objects. A device from a provider is left to its
// owner. A blocked WaitVSync returns ErrClosed.
func (d *Device) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	close(d.done)
	d.ready.Store(false)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vsync != nil {
		d.vsync.Stop()
	}
	d.releaseLocked()
	d.logger.Load().Debug("wgpu: device closed", "frames", d.stats.Frames, "passes", d.stats.Passes)
	return nil
}

// releaseLocked destroys every object created by Init, and the device
// itself when it was opened here.
func (d *Device) releaseLocked() {
	if d.device == nil {
		return
	}
	d.bound = nil
	d.rec.reset()
	for _, b := range []*hal.Buffer{&d.vbuf, &d.ibuf, &d.uniform} {
		if *b != nil {
			d.device.DestroyBuffer(*b)
			*b = nil
		}
	}
	d.vcap, d.icap = 0, 0
	for i, tex := range d.display {
		if tex != nil {
			d.device.DestroyTexture(tex)
			d.display[i] = nil
		}
	}
	if d.efbView != nil {
		d.device.DestroyTextureView(d.efbView)
		d.efbView = nil
	}
	if d.efb != nil {
		d.device.DestroyTexture(d.efb)
		d.efb = nil
	}
	if d.pipes != nil {
		d.pipes.destroy(d.device)
		d.pipes = nil
	}
	if !d.externalDevice {
		d.device.Destroy()
		d.device = nil
		d.queue = nil
		if d.instance != nil {
			d.instance.Destroy()
			d.instance = nil
		}
	}
}
