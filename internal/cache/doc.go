// Package cache provides the keyed texture pools used by the renderer.
//
// # Cache[K, V]
//
// An insertion-ordered map with a release callback. Values leave the cache
// only through Delete, Set (replacement) or Clear, and each departure calls
// the release function exactly once, in insertion order for Clear.
//
//	c := cache.New[uintptr, *Texture](func(_ uintptr, t *Texture) { t.Free() })
//	tex, created, err := c.GetOrCreate(id, convert)
//	c.Clear() // end of frame
//
// There is no eviction: the owner decides when entries go away.
//
// # Thread Safety
//
// Cache is not safe for concurrent use. Each cache is owned by the goroutine
// that draws frames.
package cache
