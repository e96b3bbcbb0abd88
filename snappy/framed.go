package snappy

import "fmt"

// coalesceThreshold is the chunk-list size at which DecompressFramed
// copies accumulated chunks into one contiguous buffer, bounding the cost
// of the final concatenation. It is a performance heuristic (spec.md §9)
// and has no effect on the decoded output.
const coalesceThreshold = 26

// chunkTypeSnappy is the only chunk type in scope; any other value is a
// structural error.
const chunkTypeSnappy = 0x00

// InvalidChunkTypeError is returned when a framed chunk's type byte is
// not the expected 0x00.
type InvalidChunkTypeError struct {
	Expected byte
	Found    byte
}

func (e *InvalidChunkTypeError) Error() string {
	return fmt.Sprintf("snappy: invalid chunk header: expected type %#02x, found %#02x", e.Expected, e.Found)
}

// DecompressFramed decodes the IWA-specific framing: a concatenation of
// chunks, each a 1-byte type (must be 0), a 24-bit little-endian length,
// and that many bytes of a standard Snappy block. It returns the
// concatenation of the decompressed blocks.
func DecompressFramed(src []byte) ([]byte, error) {
	var chunks [][]byte
	total := 0

	flush := func() {
		if len(chunks) <= 1 {
			return
		}
		merged := make([]byte, 0, total)
		for _, c := range chunks {
			merged = append(merged, c...)
		}
		chunks = [][]byte{merged}
	}

	for len(src) > 0 {
		if len(src) < 4 {
			return nil, decodeFail("truncated chunk header: %d bytes remain", len(src))
		}
		chunkType := src[0]
		if chunkType != chunkTypeSnappy {
			return nil, &InvalidChunkTypeError{Expected: chunkTypeSnappy, Found: chunkType}
		}
		length := int(src[1]) | int(src[2])<<8 | int(src[3])<<16
		src = src[4:]
		if length > len(src) {
			return nil, decodeFail("chunk length %d exceeds %d remaining bytes", length, len(src))
		}
		block := src[:length]
		src = src[length:]

		decoded, err := Decompress(block)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, decoded)
		total += len(decoded)

		if len(chunks) >= coalesceThreshold {
			flush()
		}
	}

	flush()
	if len(chunks) == 0 {
		return []byte{}, nil
	}
	return chunks[0], nil
}
