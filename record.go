// Package document ties together ContentStore, IWAReader, and Metadata
// behind the single DocumentOpener entry point spec.md §4.6 describes,
// returning an opaque Document handle.
package document

import "github.com/netwrix/iworkcore/iwa"

// Kind identifies which of the three modern iWork applications produced
// a document. Re-exported from the iwa package (which owns it to avoid
// an import cycle with the record-decoding types below) so callers only
// ever need to import this package.
type Kind = iwa.Kind

const (
	KindUnknown = iwa.KindUnknown
	KindPages   = iwa.KindPages
	KindNumbers = iwa.KindNumbers
	KindKeynote = iwa.KindKeynote
)

// TypeRegistry is the external collaborator contract spec.md §4.5
// describes: decode(kind, type_tag, bytes) -> (Message, ok).
type TypeRegistry = iwa.TypeRegistry

// Record is one decoded, identifier-addressed entry from a package's
// record map.
type Record = iwa.Record

// RecordMap maps record identifiers to their decoded values.
type RecordMap = iwa.RecordMap

// Generation distinguishes the two package shapes DocumentOpener
// recognizes: the indexed-protobuf format iWork has used since 2013, and
// the pre-2013 XML format this module detects but does not deeply parse.
type Generation int

const (
	GenerationModern Generation = iota
	GenerationLegacy
)

func (g Generation) String() string {
	if g == GenerationLegacy {
		return "legacy"
	}
	return "modern"
}
