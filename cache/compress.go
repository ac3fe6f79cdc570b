package cache

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// Payload framing: one tag byte ahead of the data. Small entries stay
// raw; entries at or above the compression threshold are S2-compressed
// unless compression failed to shrink them.
const (
	payloadRaw byte = iota
	payloadS2
)

// pack frames val for storage, compressing when it is at least
// threshold bytes and compression actually helps. Returns the framed
// payload and whether it is compressed.
func pack(val []byte, threshold int) ([]byte, bool) {
	if threshold > 0 && len(val) >= threshold {
		compressed := s2.Encode(nil, val)
		if len(compressed) < len(val) {
			out := make([]byte, 1+len(compressed))
			out[0] = payloadS2
			copy(out[1:], compressed)
			return out, true
		}
	}
	out := make([]byte, 1+len(val))
	out[0] = payloadRaw
	copy(out[1:], val)
	return out, false
}

// unpack reverses pack.
func unpack(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("cache: empty payload")
	}
	body := payload[1:]
	switch payload[0] {
	case payloadRaw:
		return body, nil
	case payloadS2:
		out, err := s2.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("cache: decompress payload: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cache: unknown payload tag %d", payload[0])
	}
}
