package iwa

import "google.golang.org/protobuf/proto"

// TypeRegistry decodes an opaque record payload into a concrete protobuf
// message, given the document kind and the schema type tag from the
// owning ArchiveInfo's MessageInfo. It is the seam between this
// schema-agnostic core and the Pages/Numbers/Keynote message types,
// which live outside this module entirely (spec.md §4.5).
//
// A false second return means "unrecognized tag or malformed payload";
// Load treats that exactly like any other decode failure: the record
// is dropped (pass 1) or left unchanged (pass 2), never aborting the load.
type TypeRegistry interface {
	Decode(kind Kind, typeTag uint32, payload []byte) (proto.Message, bool)
}

// Record is the in-memory unit the record map holds: an identifier, the
// schema type tag it was decoded under, and the decoded message.
type Record struct {
	Identifier uint64
	TypeTag    uint32
	Value      proto.Message
}

// RecordMap maps a record's 64-bit identifier to its current decoded
// value. It is built once during load and is immutable thereafter (it may
// be read concurrently without locking once load returns).
type RecordMap map[uint64]Record
