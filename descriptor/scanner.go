// Package descriptor scans arbitrary binary data (typically a compiled
// executable) for embedded protobuf FileDescriptorProto messages,
// topologically sorts them by their import edges, and re-emits .proto
// source text — the secondary "hard engineering" tool spec.md §1 calls
// out as sharing its wire-reading primitives with the IWA reader.
package descriptor

import (
	"bytes"
	"log/slog"

	"github.com/netwrix/iworkcore/wire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	protoSuffix               = ".proto"
	descriptorProtoFileName   = "google/protobuf/descriptor.proto"
	nameFieldTag              = 0x0A // field 1 (name), wire type 2 (length-delimited)
)

// ProtoFile is one recovered, not-yet-rendered .proto file.
type ProtoFile struct {
	Path           string
	Dependencies   []string
	Descriptor     *descriptorpb.FileDescriptorProto
	RenderedSource string
}

// NoDescriptorsFoundError is returned when a scan locates no verified
// FileDescriptorProto candidates at all.
type NoDescriptorsFoundError struct{}

func (NoDescriptorsFoundError) Error() string { return "descriptor: no embedded protobuf descriptors found" }

// Scan searches data for embedded FileDescriptorProto messages.
//
// For every occurrence of the literal ".proto" substring, it searches
// backward for the nearest 0x0A byte (the wire tag for FileDescriptorProto
// field 1, "name") and verifies that the varint length immediately
// following that tag byte, plus the tag byte itself and the length-prefix
// bytes, reaches exactly the byte after ".proto". Unverified candidates
// (false positives where ".proto" appears as an unrelated substring) are
// silently skipped, never reported, per spec.md §7. A verified
// descriptor ends at the first null tag, at the end of data, or just
// before the first bytes that do not decode as a field, whichever comes
// first; the null tag itself is not part of it. A candidate whose bytes
// up to that end do not parse as a FileDescriptorProto is logged and
// dropped instead, the same "logged and dropped" non-fatal policy
// spec.md §4.4 applies to undecodable IWA payloads. logger defaults to
// slog.Default() if nil.
func Scan(data []byte, logger *slog.Logger) ([]*ProtoFile, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var files []*ProtoFile
	seen := make(map[int]bool) // start offsets already consumed as a verified candidate

	suffix := []byte(protoSuffix)
	searchFrom := 0
	for {
		idx := bytes.Index(data[searchFrom:], suffix)
		if idx < 0 {
			break
		}
		hitEnd := searchFrom + idx + len(suffix)
		searchFrom = searchFrom + idx + 1

		start, ok := verifyCandidate(data, hitEnd)
		if !ok || seen[start] {
			continue
		}
		seen[start] = true

		r := wire.NewReader(data[start:])
		consumed := 0 // end of the last complete field; a null tag or undecodable bytes end the descriptor
		for !r.Done() {
			_, wireType, isNull, err := r.ReadTag()
			if err != nil || isNull {
				break
			}
			if err := r.SkipField(wireType); err != nil {
				break
			}
			consumed = r.Pos()
		}

		raw := data[start : start+consumed]
		var fd descriptorpb.FileDescriptorProto
		if err := proto.Unmarshal(raw, &fd); err != nil {
			logger.Debug("dropping verified candidate that failed to parse", "offset", start, "error", err)
			continue
		}
		if fd.GetName() == descriptorProtoFileName {
			continue
		}
		files = append(files, &ProtoFile{
			Path:         fd.GetName(),
			Dependencies: append([]string(nil), fd.GetDependency()...),
			Descriptor:   &fd,
		})
	}

	if len(files) == 0 {
		return nil, NoDescriptorsFoundError{}
	}
	return files, nil
}

// verifyCandidate searches backward from hitEnd (the offset just past a
// ".proto" occurrence) for the nearest 0x0A tag byte, and checks that
// decoding a varint length starting right after it reaches exactly
// hitEnd. It returns the offset of the tag byte on success.
func verifyCandidate(data []byte, hitEnd int) (start int, ok bool) {
	for i := hitEnd - 1; i >= 0; i-- {
		if data[i] != nameFieldTag {
			continue
		}
		r := wire.NewReader(data[i+1:])
		n, err := r.ReadVarint()
		if err != nil {
			return 0, false
		}
		lengthPrefixWidth := r.Pos()
		nameEnd := i + 1 + lengthPrefixWidth + int(n)
		if nameEnd != hitEnd {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
