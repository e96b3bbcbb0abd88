// Package snappy implements the standard Snappy block format and the
// framed multi-chunk variant Apple's IWA container uses, by hand — per
// spec.md, this is core "hard engineering" subject matter for iworkcore,
// not a thin wrapper around an existing Snappy library.
package snappy

import (
	"encoding/binary"
	"fmt"

	"github.com/netwrix/iworkcore/wire"
)

const (
	tagLiteral = 0x00
	tagCopy1   = 0x01
	tagCopy2   = 0x02
	tagCopy4   = 0x03

	minMatchLength = 4
	maxBlockOffset = 1 << 30
)

// DecompressionFailedError wraps the underlying reason a Snappy block
// failed to decode.
type DecompressionFailedError struct {
	Reason string
}

func (e *DecompressionFailedError) Error() string {
	return fmt.Sprintf("snappy: decompression failed: %s", e.Reason)
}

func decodeFail(format string, args ...interface{}) error {
	return &DecompressionFailedError{Reason: fmt.Sprintf(format, args...)}
}

// MaxCompressedLen returns an upper bound on the compressed size of an
// uncompressed block of length n, matching the reference Snappy formula.
func MaxCompressedLen(n int) int {
	return 32 + n + n/6
}

// UncompressedLen reads just the varint length prefix of a Snappy block
// without decoding its body.
func UncompressedLen(src []byte) (int, error) {
	r := wire.NewReader(src)
	n, err := r.ReadVarint()
	if err != nil {
		return 0, decodeFail("reading uncompressed length: %v", err)
	}
	return int(n), nil
}

// Validate reports whether src is a well-formed Snappy block that decodes
// cleanly to its declared length.
func Validate(src []byte) bool {
	_, err := Decompress(src)
	return err == nil
}

// Decompress reconstructs the original byte sequence from a single Snappy
// block: a varint uncompressed length followed by a literal/copy tag
// stream.
func Decompress(src []byte) ([]byte, error) {
	r := wire.NewReader(src)
	declaredLen, err := r.ReadVarint()
	if err != nil {
		return nil, decodeFail("reading uncompressed length: %v", err)
	}

	dst := make([]byte, 0, declaredLen)
	for r.Len() > 0 {
		tagByte, err := r.ReadBytes(1)
		if err != nil {
			return nil, decodeFail("reading tag byte: %v", err)
		}
		tag := tagByte[0]

		switch tag & 0x3 {
		case tagLiteral:
			litLen, err := literalLength(r, tag)
			if err != nil {
				return nil, err
			}
			lit, err := r.ReadBytes(litLen)
			if err != nil {
				return nil, decodeFail("short literal: %v", err)
			}
			dst = append(dst, lit...)

		case tagCopy1:
			length := int((tag>>2)&0x7) + 4
			b, err := r.ReadBytes(1)
			if err != nil {
				return nil, decodeFail("short 1-byte copy offset: %v", err)
			}
			offset := (int(tag>>5) << 8) | int(b[0])
			if dst, err = applyCopy(dst, offset, length); err != nil {
				return nil, err
			}

		case tagCopy2:
			length := int(tag>>2) + 1
			b, err := r.ReadBytes(2)
			if err != nil {
				return nil, decodeFail("short 2-byte copy offset: %v", err)
			}
			offset := int(binary.LittleEndian.Uint16(b))
			if dst, err = applyCopy(dst, offset, length); err != nil {
				return nil, err
			}

		case tagCopy4:
			length := int(tag>>2) + 1
			b, err := r.ReadBytes(4)
			if err != nil {
				return nil, decodeFail("short 4-byte copy offset: %v", err)
			}
			offset := int(binary.LittleEndian.Uint32(b))
			if dst, err = applyCopy(dst, offset, length); err != nil {
				return nil, err
			}
		}
	}

	if uint64(len(dst)) != declaredLen {
		return nil, decodeFail("decoded length %d does not match declared length %d", len(dst), declaredLen)
	}
	return dst, nil
}

// literalLength decodes a literal tag's length, reading any length
// extension bytes (lengths 60/61/62/63 indicate 1/2/3/4 extra
// little-endian bytes hold length-1) from r.
func literalLength(r *wire.Reader, tag byte) (int, error) {
	n := int(tag >> 2)
	if n < 60 {
		return n + 1, nil
	}
	extraBytes := n - 59
	b, err := r.ReadBytes(extraBytes)
	if err != nil {
		return 0, decodeFail("short literal length extension: %v", err)
	}
	var v uint64
	for i, c := range b {
		v |= uint64(c) << (8 * uint(i))
	}
	return int(v) + 1, nil
}

// applyCopy appends length bytes read from offset positions behind the
// current end of dst, byte by byte so that overlapping copies (offset <
// length) replicate correctly.
func applyCopy(dst []byte, offset, length int) ([]byte, error) {
	if offset == 0 {
		return nil, decodeFail("copy offset is zero")
	}
	if offset > len(dst) {
		return nil, decodeFail("copy offset %d exceeds %d decoded bytes", offset, len(dst))
	}
	start := len(dst) - offset
	for i := 0; i < length; i++ {
		dst = append(dst, dst[start+i])
	}
	return dst, nil
}

// Compress encodes src as a single Snappy block: a varint uncompressed
// length followed by a literal/copy tag stream. It uses a simple
// single-slot hash-table match finder (minimum match length 4) rather than the
// reference encoder's exact heuristics; any conforming decoder, including
// Decompress, reconstructs src exactly from its output.
func Compress(src []byte) []byte {
	dst := make([]byte, 0, MaxCompressedLen(len(src)))
	dst = appendVarint(dst, uint64(len(src)))

	const hashTableBits = 14
	const hashTableSize = 1 << hashTableBits
	var table [hashTableSize]int32
	for i := range table {
		table[i] = -1
	}

	hash := func(p []byte) uint32 {
		v := binary.LittleEndian.Uint32(p)
		return (v * 2654435761) >> (32 - hashTableBits)
	}

	litStart := 0
	i := 0
	n := len(src)
	for i+minMatchLength <= n {
		h := hash(src[i : i+4])
		cand := int(table[h])
		table[h] = int32(i)

		if cand < 0 || i-cand > maxBlockOffset || !bytesEqual4(src, cand, i) {
			i++
			continue
		}

		matchLen := 4
		for i+matchLen < n && src[cand+matchLen] == src[i+matchLen] {
			matchLen++
		}

		if litStart < i {
			dst = appendLiteral(dst, src[litStart:i])
		}
		dst = appendCopy(dst, i-cand, matchLen)
		i += matchLen
		litStart = i
	}
	if litStart < n {
		dst = appendLiteral(dst, src[litStart:n])
	}
	return dst
}

func bytesEqual4(src []byte, a, b int) bool {
	return src[a] == src[b] && src[a+1] == src[b+1] && src[a+2] == src[b+2] && src[a+3] == src[b+3]
}

func appendVarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

func appendLiteral(dst, lit []byte) []byte {
	n := len(lit)
	switch {
	case n <= 60:
		dst = append(dst, byte((n-1)<<2)|tagLiteral)
	default:
		nm1 := uint64(n - 1)
		extra := byteWidth(nm1)
		dst = append(dst, byte((59+extra)<<2)|tagLiteral)
		for i := 0; i < extra; i++ {
			dst = append(dst, byte(nm1>>(8*uint(i))))
		}
	}
	return append(dst, lit...)
}

func byteWidth(v uint64) int {
	n := 1
	for v >>= 8; v > 0; v >>= 8 {
		n++
	}
	return n
}

// appendCopy splits a match of arbitrary length into one or more copy
// tags (each tag's length field is bounded), choosing the narrowest
// offset encoding that fits.
func appendCopy(dst []byte, offset, length int) []byte {
	for length > 0 {
		switch {
		case offset < 2048 && length >= 4:
			chunk := length
			if chunk > 11 {
				chunk = 11
			}
			dst = append(dst, byte(((chunk-4)<<2)|(offset>>8)<<5|tagCopy1), byte(offset))
			length -= chunk
		case offset < 65536:
			chunk := length
			if chunk > 64 {
				chunk = 64
			}
			dst = append(dst, byte((chunk-1)<<2)|tagCopy2)
			dst = append(dst, byte(offset), byte(offset>>8))
			length -= chunk
		default:
			chunk := length
			if chunk > 64 {
				chunk = 64
			}
			dst = append(dst, byte((chunk-1)<<2)|tagCopy4)
			dst = append(dst, byte(offset), byte(offset>>8), byte(offset>>16), byte(offset>>24))
			length -= chunk
		}
	}
	return dst
}
