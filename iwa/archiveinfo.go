package iwa

import "github.com/netwrix/iworkcore/wire"

// messageInfo mirrors one MessageInfo entry: a payload's schema type tag
// and byte length. Unknown fields on MessageInfo are tolerated.
type messageInfo struct {
	hasType bool
	typ     uint32
	hasLen  bool
	length  uint32
}

// archiveInfo mirrors the three ArchiveInfo fields this engine cares
// about (spec.md §3). Everything else in a real ArchiveInfo is unknown
// to this layer and is skipped rather than decoded, since the engine's
// only schema knowledge at this level is the record-framing header
// itself, not the Pages/Numbers/Keynote payload schemas.
type archiveInfo struct {
	hasIdentifier bool
	identifier    uint64
	shouldMerge   bool
	messageInfos  []messageInfo
}

// parseArchiveInfo decodes a serialized ArchiveInfo using wire.Reader
// directly rather than a generated protobuf type, per SPEC_FULL.md §11:
// this is the one place the engine's schema knowledge is just these three
// fields, so hand-decoding them is the natural extension of the same
// wire-reading primitives the descriptor scanner uses.
func parseArchiveInfo(data []byte) (archiveInfo, error) {
	var ai archiveInfo
	r := wire.NewReader(data)
	for !r.Done() {
		field, wireType, isNull, err := r.ReadTag()
		if err != nil {
			return ai, err
		}
		if isNull {
			break
		}
		switch field {
		case 1: // identifier, optional uint64
			if wireType != wire.Varint {
				if err := r.SkipField(wireType); err != nil {
					return ai, err
				}
				continue
			}
			v, err := r.ReadVarint()
			if err != nil {
				return ai, err
			}
			ai.identifier = v
			ai.hasIdentifier = true
		case 2: // message_infos, repeated sub-message
			if wireType != wire.LengthDelimited {
				if err := r.SkipField(wireType); err != nil {
					return ai, err
				}
				continue
			}
			sub, err := r.ReadLengthDelimited()
			if err != nil {
				return ai, err
			}
			mi, err := parseMessageInfo(sub)
			if err != nil {
				return ai, err
			}
			ai.messageInfos = append(ai.messageInfos, mi)
		case 3: // should_merge, optional bool, default false
			if wireType != wire.Varint {
				if err := r.SkipField(wireType); err != nil {
					return ai, err
				}
				continue
			}
			v, err := r.ReadVarint()
			if err != nil {
				return ai, err
			}
			ai.shouldMerge = v != 0
		default:
			if err := r.SkipField(wireType); err != nil {
				return ai, err
			}
		}
	}
	return ai, nil
}

func parseMessageInfo(data []byte) (messageInfo, error) {
	var mi messageInfo
	r := wire.NewReader(data)
	for !r.Done() {
		field, wireType, isNull, err := r.ReadTag()
		if err != nil {
			return mi, err
		}
		if isNull {
			break
		}
		switch field {
		case 1: // type, uint32
			v, err := r.ReadVarint()
			if err != nil {
				return mi, err
			}
			mi.typ = uint32(v)
			mi.hasType = true
		case 2: // length, uint32
			v, err := r.ReadVarint()
			if err != nil {
				return mi, err
			}
			mi.length = uint32(v)
			mi.hasLen = true
		default:
			if err := r.SkipField(wireType); err != nil {
				return mi, err
			}
		}
	}
	return mi, nil
}
