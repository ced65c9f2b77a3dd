package ebiten

import (
	"image"
	"sync"

	"github.com/gogpu/gxdraw"
)

// drawOp is one recorded quad. Lines are recorded as quads.
type drawOp struct {
	blend gxdraw.BlendMode
	img   *image.NRGBA
	v     [4]gxdraw.Vertex
}

// opBatch is a run of consecutive ops sharing blend mode and texture.
type opBatch struct {
	blend gxdraw.BlendMode
	img   *image.NRGBA
	ops   []drawOp
}

// batchOps splits ops into runs that replay as one DrawTriangles call.
func batchOps(ops []drawOp) []opBatch {
	var out []opBatch
	start := 0
	for i := 1; i <= len(ops); i++ {
		if i < len(ops) && ops[i].blend == ops[start].blend && ops[i].img == ops[start].img {
			continue
		}
		out = append(out, opBatch{blend: ops[start].blend, img: ops[start].img, ops: ops[start:i]})
		start = i
	}
	return out
}

// RecordStats counts recorded work.
type RecordStats struct {
	Quads     uint64
	Lines     uint64
	Frames    uint64
	Uploads   uint64
	Releases  uint64
	Published int
}

// frameUpdate is what the game loop takes from the recorder on each tick.
type frameUpdate struct {
	ops      []drawOp
	seq      uint64
	changed  bool
	released []*image.NRGBA
}

// recorder collects the draws of a frame on the drawer goroutine and hands
// finished frames to the game loop.
type recorder struct {
	// Drawer-owned state.
	pending  []drawOp
	deferred []*image.NRGBA
	blend    gxdraw.BlendMode
	bound    *image.NRGBA
	stats    RecordStats

	// mu guards the published frame and the release queue.
	mu       sync.Mutex
	shown    []drawOp
	seq      uint64
	front    int
	released []*image.NRGBA
}

func newRecorder() *recorder {
	return &recorder{blend: gxdraw.BlendAlpha}
}

func (r *recorder) setBlend(m gxdraw.BlendMode) {
	r.blend = m
}

func (r *recorder) bind(img *image.NRGBA) {
	r.bound = img
}

func (r *recorder) quad(v [4]gxdraw.Vertex) {
	if r.bound == nil {
		return
	}
	r.pending = append(r.pending, drawOp{blend: r.blend, img: r.bound, v: v})
	r.stats.Quads++
}

func (r *recorder) line(v [2]gxdraw.Vertex, width float32) {
	if r.bound == nil {
		return
	}
	q, ok := gxdraw.LineQuad(v, width)
	if !ok {
		return
	}
	r.pending = append(r.pending, drawOp{blend: r.blend, img: r.bound, v: q})
	r.stats.Lines++
}

// publish makes the pending ops the displayed frame and starts a new one.
func (r *recorder) publish(fb int) {
	r.mu.Lock()
	r.shown, r.pending = r.pending, r.shown[:0]
	r.front = fb & 1
	r.seq++
	r.released = append(r.released, r.deferred...)
	r.stats.Published = len(r.shown)
	r.mu.Unlock()
	r.deferred = r.deferred[:0]
	r.stats.Frames++
}

// take returns the displayed frame when it changed after seq, together with
// the images released since the last call. Released images are no longer
// referenced by any frame published later.
func (r *recorder) take(seq uint64) frameUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := frameUpdate{seq: r.seq, released: r.released}
	r.released = nil
	if r.seq != seq {
		u.ops = make([]drawOp, len(r.shown))
		copy(u.ops, r.shown)
		u.changed = true
	}
	return u
}

// release queues img for disposal by the game loop. An image still used by
// pending ops is queued when that frame is published.
func (r *recorder) release(img *image.NRGBA) {
	if img == r.bound {
		r.bound = nil
	}
	r.stats.Releases++
	for _, op := range r.pending {
		if op.img == img {
			r.deferred = append(r.deferred, img)
			return
		}
	}
	r.mu.Lock()
	r.released = append(r.released, img)
	r.mu.Unlock()
}

func (r *recorder) framebuffer() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.front
}
