package render

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/gogpu/termgfx/batch"
)

// styledRun is one same-color stretch of a composed line: the quads it
// produced and the effective color they were batched under.
type styledRun struct {
	Color batch.RGBA
	Quads []batch.Quad
}

// ErrCorruptPayload reports a cached composition that does not decode.
// The caller treats it as a cache miss and re-composes the line.
var ErrCorruptPayload = errors.New("render: corrupt cached composition")

const (
	quadFloats     = 8
	quadByteSize   = quadFloats * 4
	maxDecodedRuns = 1 << 16
)

// encodeRuns serializes composed runs for the byte cache. Layout is
// little-endian: run count, then per run a 4-float color, a quad count,
// and 8 floats per quad.
func encodeRuns(runs []styledRun) []byte {
	size := 4
	for _, run := range runs {
		size += 16 + 4 + len(run.Quads)*quadByteSize
	}
	data := make([]byte, size)

	off := 0
	binary.LittleEndian.PutUint32(data[off:], uint32(len(runs)))
	off += 4
	for _, run := range runs {
		off = putFloat32(data, off, run.Color.R)
		off = putFloat32(data, off, run.Color.G)
		off = putFloat32(data, off, run.Color.B)
		off = putFloat32(data, off, run.Color.A)
		binary.LittleEndian.PutUint32(data[off:], uint32(len(run.Quads)))
		off += 4
		for _, q := range run.Quads {
			for _, f := range [quadFloats]float32{q.X0, q.Y0, q.X1, q.Y1, q.U0, q.V0, q.U1, q.V1} {
				off = putFloat32(data, off, f)
			}
		}
	}
	return data
}

// decodeRuns parses a cached composition back into runs.
func decodeRuns(data []byte) ([]styledRun, error) {
	if len(data) < 4 {
		return nil, ErrCorruptPayload
	}
	off := 0
	count := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if count > maxDecodedRuns {
		return nil, ErrCorruptPayload
	}

	runs := make([]styledRun, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data)-off < 16+4 {
			return nil, ErrCorruptPayload
		}
		var run styledRun
		run.Color.R, off = getFloat32(data, off)
		run.Color.G, off = getFloat32(data, off)
		run.Color.B, off = getFloat32(data, off)
		run.Color.A, off = getFloat32(data, off)
		quads := binary.LittleEndian.Uint32(data[off:])
		off += 4
		if len(data)-off < int(quads)*quadByteSize {
			return nil, ErrCorruptPayload
		}
		run.Quads = make([]batch.Quad, quads)
		for j := range run.Quads {
			q := &run.Quads[j]
			q.X0, off = getFloat32(data, off)
			q.Y0, off = getFloat32(data, off)
			q.X1, off = getFloat32(data, off)
			q.Y1, off = getFloat32(data, off)
			q.U0, off = getFloat32(data, off)
			q.V0, off = getFloat32(data, off)
			q.U1, off = getFloat32(data, off)
			q.V1, off = getFloat32(data, off)
		}
		runs = append(runs, run)
	}
	if off != len(data) {
		return nil, ErrCorruptPayload
	}
	return runs, nil
}

func putFloat32(data []byte, off int, f float32) int {
	binary.LittleEndian.PutUint32(data[off:], math.Float32bits(f))
	return off + 4
}

func getFloat32(data []byte, off int) (float32, int) {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:])), off + 4
}
