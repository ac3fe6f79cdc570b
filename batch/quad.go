package batch

import (
	"encoding/binary"
	"math"
)

// vertexStride is the byte stride per vertex in the glyph pipeline.
// Layout per vertex:
//
//	position  (vec2<f32>) = 8 bytes  (location 0)
//	tex_coord (vec2<f32>) = 8 bytes  (location 1)
//
// Total = 16 bytes per vertex.
const vertexStride = 16

// uniformSize is the byte size of the glyph uniform buffer.
// Layout: transform (mat4x4<f32>) = 64 bytes +
// color (vec4<f32>) = 16 bytes + params (vec4<f32>) = 16 bytes = 96 bytes.
const uniformSize = 96

// indicesPerQuad is the index count of the two triangles covering a quad.
const indicesPerQuad = 6

// MaxIndexedQuads is the quad cap imposed by the shared uint16 index
// table: four vertices per quad exhaust the 65536-vertex index space at
// 16384 quads.
const MaxIndexedQuads = 1 << 14

// Quad is one glyph rectangle: corner positions in pixel space and the
// normalized atlas coordinates of the glyph.
type Quad struct {
	X0, Y0, X1, Y1 float32
	U0, V0, U1, V1 float32
}

// RGBA is a straight-alpha color in the 0..1 range. The uniform builder
// premultiplies it before upload.
type RGBA struct {
	R, G, B, A float32
}

// TextureID identifies the atlas page a batch samples from. The engine
// uses the atlas generation, so batches recorded against a rebuilt page
// are recognizably stale.
type TextureID uint64

// Batch accumulates quads sharing one texture, color, and opacity. One
// batch becomes exactly one draw call.
type Batch struct {
	Quads   []Quad
	Texture TextureID
	Color   RGBA
	Opacity float32
}

// resetBatch clears a batch for reuse through the pool. The quad slice
// keeps its capacity.
func resetBatch(b *Batch) {
	b.Quads = b.Quads[:0]
	b.Texture = 0
	b.Color = RGBA{}
	b.Opacity = 0
}

// BuildVertexData serializes quads into raw little-endian vertex bytes
// for GPU upload. Each quad produces 4 vertices x 16 bytes = 64 bytes,
// wound to match the shared index table.
func BuildVertexData(quads []Quad) []byte {
	if len(quads) == 0 {
		return nil
	}
	data := make([]byte, len(quads)*4*vertexStride)
	off := 0
	for _, q := range quads {
		// 0: top-left, 1: top-right, 2: bottom-right, 3: bottom-left.
		writeVertex(data[off:], q.X0, q.Y0, q.U0, q.V0)
		off += vertexStride
		writeVertex(data[off:], q.X1, q.Y0, q.U1, q.V0)
		off += vertexStride
		writeVertex(data[off:], q.X1, q.Y1, q.U1, q.V1)
		off += vertexStride
		writeVertex(data[off:], q.X0, q.Y1, q.U0, q.V1)
		off += vertexStride
	}
	return data
}

// writeVertex writes a single vertex into buf.
func writeVertex(buf []byte, x, y, u, v float32) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(y))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(u))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v))
}

// BuildIndexData serializes the index table for numQuads quads. Every
// quad uses the pattern 0,1,2, 2,3,0 over its four vertices, so the
// table depends only on the quad count and is built once per renderer,
// never per batch.
func BuildIndexData(numQuads int) []byte {
	data := make([]byte, numQuads*indicesPerQuad*2)
	for i := 0; i < numQuads; i++ {
		base := i * indicesPerQuad * 2
		vertex := uint16(i * 4) //nolint:gosec // bounded by MaxIndexedQuads

		binary.LittleEndian.PutUint16(data[base+0:], vertex+0)
		binary.LittleEndian.PutUint16(data[base+2:], vertex+1)
		binary.LittleEndian.PutUint16(data[base+4:], vertex+2)
		binary.LittleEndian.PutUint16(data[base+6:], vertex+2)
		binary.LittleEndian.PutUint16(data[base+8:], vertex+3)
		binary.LittleEndian.PutUint16(data[base+10:], vertex+0)
	}
	return data
}

// BuildUniform creates the 96-byte uniform block for one batch. The
// transform maps pixel coordinates to clip space for a viewW x viewH
// viewport with y growing downward; color is premultiplied.
func BuildUniform(viewW, viewH float32, color RGBA, opacity, atlasSize float32) []byte {
	buf := make([]byte, uniformSize)
	off := 0

	// Pixel-to-clip transform as a 4x4, row by row:
	//   x' = 2x/w - 1
	//   y' = 1 - 2y/h
	t := [16]float32{
		2 / viewW, 0, 0, -1,
		0, -2 / viewH, 0, 1,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	for _, v := range t {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}

	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(color.R*color.A))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(color.G*color.A))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(color.B*color.A))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(color.A))
	off += 4

	// params: [opacity, atlas_size, reserved, reserved]
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(opacity))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(atlasSize))

	return buf
}
