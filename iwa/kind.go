package iwa

// Kind identifies which of the three modern iWork applications produced a
// document. It can be derived from a package's file extension and,
// separately, re-derived from the type tags actually present in its
// decoded record map (document.go reconciles the two and fails on a
// mismatch).
type Kind int

const (
	KindUnknown Kind = iota
	KindPages
	KindNumbers
	KindKeynote
)

func (k Kind) String() string {
	switch k {
	case KindPages:
		return "pages"
	case KindNumbers:
		return "numbers"
	case KindKeynote:
		return "keynote"
	default:
		return "unknown"
	}
}

// Well-known root archive type tags used to re-derive Kind from a decoded
// record map (spec.md §4.6 step 6). Grounded on the teacher's
// determineTypeFromIDs, including its secondary range-based checks for
// Numbers table types and Keynote build/transition types (SPEC_FULL.md §12).
const (
	typeTagPagesDocumentArchive = 10000
	typeTagNumbersDataStore     = 6001
	typeTagNumbersTableDataList = 6005
	typeTagKeynoteSlideArchive  = 5

	numbersTableRangeLow  = 6000
	numbersTableRangeHigh = 6256
	keynoteBuildRangeLow  = 100
	keynoteBuildRangeHigh = 148
)

// DeriveKind inspects the set of type tags seen while decoding a
// document's records and reports the iWork application kind they imply,
// or KindUnknown if no recognizable marker tag is present.
func DeriveKind(typeTags map[uint32]bool) Kind {
	if typeTags[typeTagPagesDocumentArchive] {
		return KindPages
	}
	if typeTags[typeTagNumbersDataStore] || typeTags[typeTagNumbersTableDataList] {
		return KindNumbers
	}
	if typeTags[typeTagKeynoteSlideArchive] {
		return KindKeynote
	}
	for tag := range typeTags {
		if tag >= numbersTableRangeLow && tag <= numbersTableRangeHigh {
			return KindNumbers
		}
	}
	for tag := range typeTags {
		if tag >= keynoteBuildRangeLow && tag <= keynoteBuildRangeHigh {
			return KindKeynote
		}
	}
	return KindUnknown
}

// KindFromExtension derives a Kind from a package's file extension
// (".pages", ".numbers", ".key"), after stripping an optional "-tef"
// suffix. ok is false for an unrecognized extension.
func KindFromExtension(ext string) (kind Kind, ok bool) {
	switch ext {
	case "pages":
		return KindPages, true
	case "numbers":
		return KindNumbers, true
	case "key":
		return KindKeynote, true
	default:
		return KindUnknown, false
	}
}
