package gxdraw

import (
	"fmt"

	"github.com/gogpu/gxdraw/internal/cache"
	"github.com/gogpu/gxdraw/internal/texmem"
	"github.com/gogpu/gxdraw/texconv"
)

// CacheOption configures a TextureCache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	budget uint64
	runner texconv.Runner
}

// WithCacheBudget limits the bytes held by both pools together. Zero means
// unlimited. A conversion that does not fit fails with ErrAllocation; nothing
// is evicted to make room.
func WithCacheBudget(bytes uint64) CacheOption {
	return func(o *cacheOptions) {
		o.budget = bytes
	}
}

// WithConversionRunner distributes the tile rows of each conversion with
// run, such as a worker pool.
func WithConversionRunner(run texconv.Runner) CacheOption {
	return func(o *cacheOptions) {
		o.runner = run
	}
}

// TextureCache maps source buffer identities to converted textures.
//
// Two pools exist: persistent entries live until invalidated or cleared,
// transient entries (frame-local buffers) until ClearTransient. Each pool
// holds at most one texture per identity.
//
// TextureCache is not safe for concurrent use. It belongs to the drawer
// goroutine.
type TextureCache struct {
	dev        Device
	persistent *cache.Cache[BufferID, *Texture]
	transient  *cache.Cache[BufferID, *Texture]
	budget     *texmem.Budget
	runner     texconv.Runner

	conversions uint64
	uploads     uint64
}

// NewTextureCache creates a cache that releases textures through dev.
func NewTextureCache(dev Device, opts ...CacheOption) *TextureCache {
	var o cacheOptions
	for _, opt := range opts {
		opt(&o)
	}
	c := &TextureCache{
		dev:    dev,
		budget: texmem.NewBudget(o.budget),
		runner: o.runner,
	}
	c.persistent = cache.New[BufferID, *Texture](c.release)
	c.transient = cache.New[BufferID, *Texture](c.release)
	return c
}

// GetOrCreate returns the texture for buf from the pool selected by
// frameLocal, converting buf on a miss. A hit returns the stored entry
// unchanged; buffer contents are not re-validated.
func (c *TextureCache) GetOrCreate(buf *SourceBuffer, frameLocal bool) (*Texture, error) {
	if buf == nil {
		return nil, ErrNilBuffer
	}
	tex, created, err := c.pool(frameLocal).GetOrCreate(buf.ID, func() (*Texture, error) {
		return c.convert(buf, frameLocal)
	})
	if err != nil {
		return nil, err
	}
	if created {
		c.conversions++
		Logger().Debug("gxdraw: texture converted",
			"id", uintptr(buf.ID), "format", buf.Format, "size", tex.Size, "transient", frameLocal)
	}
	return tex, nil
}

// Upload hands tex to the device once, before its first bind. This is the
// point where CPU-written texels become visible to the GPU.
func (c *TextureCache) Upload(tex *Texture) error {
	if tex.uploaded {
		return nil
	}
	if err := c.dev.UploadTexture(tex); err != nil {
		return &TextureError{Op: "upload", ID: tex.ID, Err: err}
	}
	tex.uploaded = true
	c.uploads++
	return nil
}

// Invalidate drops the persistent texture for id.
// Returns true if an entry was removed.
func (c *TextureCache) Invalidate(id BufferID) bool {
	return c.persistent.Delete(id)
}

// ClearTransient frees and empties the transient pool.
func (c *TextureCache) ClearTransient() int {
	return c.transient.Clear()
}

// ClearPersistent frees and empties the persistent pool.
func (c *TextureCache) ClearPersistent() int {
	return c.persistent.Clear()
}

// Len returns the number of entries in the selected pool.
func (c *TextureCache) Len(transient bool) int {
	return c.pool(transient).Len()
}

// Conversions returns the number of conversions performed so far.
func (c *TextureCache) Conversions() uint64 {
	return c.conversions
}

// Stats returns a snapshot of cache counters.
func (c *TextureCache) Stats() CacheStats {
	p, t := c.persistent.Stats(), c.transient.Stats()
	return CacheStats{
		Conversions:   c.conversions,
		Uploads:       c.uploads,
		Hits:          p.Hits + t.Hits,
		Misses:        p.Misses + t.Misses,
		PersistentLen: p.Len,
		TransientLen:  t.Len,
		Memory:        c.budget.Stats(),
	}
}

func (c *TextureCache) pool(transient bool) *cache.Cache[BufferID, *Texture] {
	if transient {
		return c.transient
	}
	return c.persistent
}

func (c *TextureCache) convert(buf *SourceBuffer, transient bool) (*Texture, error) {
	size, err := texconv.Size(&buf.Source)
	if err != nil {
		return nil, &TextureError{Op: "convert", ID: buf.ID, Format: buf.Format, Err: err}
	}
	if err := c.budget.Reserve(size); err != nil {
		return nil, &TextureError{Op: "allocate", ID: buf.ID, Format: buf.Format,
			Err: fmt.Errorf("%w: %w", ErrAllocation, err)}
	}
	tiled, err := texconv.ConvertWith(&buf.Source, c.runner)
	if err != nil {
		c.budget.Release(size)
		return nil, &TextureError{Op: "convert", ID: buf.ID, Format: buf.Format, Err: err}
	}
	return newTexture(buf.ID, tiled, transient), nil
}

func (c *TextureCache) release(_ BufferID, tex *Texture) {
	if tex.uploaded {
		c.dev.ReleaseTexture(tex)
	}
	c.budget.Release(tex.Size)
	tex.Data = nil
	tex.Handle = nil
	tex.uploaded = false
}

// CacheStats contains texture cache statistics.
type CacheStats struct {
	// Conversions counts source buffers converted (cache misses that
	// produced a texture).
	Conversions uint64

	// Uploads counts textures handed to the device.
	Uploads uint64

	// Hits and Misses are summed over both pools.
	Hits   uint64
	Misses uint64

	PersistentLen int
	TransientLen  int

	// Memory is the texture byte budget.
	Memory texmem.Stats
}
