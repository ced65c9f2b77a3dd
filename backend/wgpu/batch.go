//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gxdraw"
)

// maxBatchVertices is the vertex limit of one pass, set by uint16 indices.
const maxBatchVertices = math.MaxUint16 + 1

// drawBatch is one indexed draw: a run of consecutive triangles sharing a
// blend mode and texture.
type drawBatch struct {
	blend gxdraw.BlendMode
	tex   *gpuTexture
	first uint32
	count uint32
}

// recorder collects the geometry of one render pass on the CPU.
type recorder struct {
	vertices []byte
	indices  []uint16
	batches  []drawBatch
}

func (r *recorder) vertexCount() int {
	return len(r.vertices) / vertexStride
}

// fits reports whether n more vertices can be added to the pass.
func (r *recorder) fits(n int) bool {
	return r.vertexCount()+n <= maxBatchVertices
}

func (r *recorder) empty() bool {
	return len(r.batches) == 0
}

func (r *recorder) reset() {
	r.vertices = r.vertices[:0]
	r.indices = r.indices[:0]
	r.batches = r.batches[:0]
}

func (r *recorder) vertex(x, y, u, v float32, c [4]uint8) {
	b := r.vertices
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(x))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(y))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(u))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	r.vertices = append(b, c[0], c[1], c[2], c[3])
}

// quad appends two triangles (TL, BL, BR) and (TL, BR, TR).
func (r *recorder) quad(v [4]gxdraw.Vertex, blend gxdraw.BlendMode, tex *gpuTexture) {
	base := uint16(r.vertexCount())
	for _, p := range v {
		r.vertex(p.X, p.Y, p.U, p.V, [4]uint8{p.Color.R, p.Color.G, p.Color.B, p.Color.A})
	}
	r.indices = append(r.indices, base, base+1, base+2, base, base+2, base+3)
	r.extend(blend, tex, 6)
}

// line appends the segment as a quad of the given width. Zero-length lines
// are dropped.
func (r *recorder) line(v [2]gxdraw.Vertex, width float32, blend gxdraw.BlendMode, tex *gpuTexture) bool {
	q, ok := gxdraw.LineQuad(v, width)
	if ok {
		r.quad(q, blend, tex)
	}
	return ok
}

func (r *recorder) extend(blend gxdraw.BlendMode, tex *gpuTexture, n uint32) {
	if k := len(r.batches) - 1; k >= 0 && r.batches[k].blend == blend && r.batches[k].tex == tex {
		r.batches[k].count += n
		return
	}
	r.batches = append(r.batches, drawBatch{
		blend: blend,
		tex:   tex,
		first: uint32(len(r.indices)) - n,
		count: n,
	})
}

// indexBytes encodes the indices into dst for Queue.WriteBuffer. Six
// indices per quad keep the size a multiple of four bytes.
func (r *recorder) indexBytes(dst []byte) []byte {
	dst = dst[:0]
	for _, i := range r.indices {
		dst = binary.LittleEndian.AppendUint16(dst, i)
	}
	return dst
}
