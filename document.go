package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gravitational/trace"
	"github.com/netwrix/iworkcore/container"
	"github.com/netwrix/iworkcore/iwa"
	"github.com/netwrix/iworkcore/legacy"
	"github.com/netwrix/iworkcore/metadata"
)

const (
	indexSuffix       = ".iwa"
	modernMarkerEntry = "Index/Document.iwa"
	legacyMarkerXML   = "index.xml"
	legacyMarkerAPXL  = "index.apxl"
	legacyMarkerXMLGz = "index.xml.gz"
	legacyMarkerAPXLGz = "index.apxl.gz"
	tefSuffix         = "-tef"
)

// Document is the handle DocumentOpener returns on a successful Open: a
// package's metadata, decoded record map, and recognized kind/generation.
type Document struct {
	Path       string
	Kind       Kind
	Generation Generation
	Metadata   metadata.Metadata
	Records    RecordMap

	// Assets is a Store rooted at the package's bundle root (for a
	// directory bundle) or the whole archive (for a zipped package), so
	// callers can reach non-Index, non-Metadata entries living alongside
	// them. It is nil for legacy packages.
	Assets container.Store
}

// Close releases any open archive handles held by the document's Assets
// store. It is a no-op for directory-backed documents and for documents
// with no Assets store.
func (d *Document) Close() error {
	if closer, ok := d.Assets.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Resolve looks up a decoded record by identifier, the schema-agnostic
// generalization of the teacher's Index.Deref (SPEC_FULL.md §12).
func (d *Document) Resolve(identifier uint64) (Record, error) {
	if d.Generation == GenerationLegacy {
		return Record{}, trace.Wrap(LegacyNotImplementedError{})
	}
	r, ok := d.Records[identifier]
	if !ok {
		return Record{}, trace.Wrap(&RecordNotFoundError{Identifier: identifier})
	}
	return r, nil
}

// Open implements the DocumentOpener steps of spec.md §4.6: locate the
// package, determine its extension-implied kind, pick a backend, parse
// metadata tolerantly, load records, and re-derive the kind from what was
// actually decoded.
func Open(path string, opts ...Option) (*Document, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, trace.Wrap(&FileNotFoundError{Path: path})
		}
		return nil, trace.Wrap(trace.ConvertSystemError(err))
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	tef := strings.HasSuffix(ext, tefSuffix)
	ext = strings.TrimSuffix(ext, tefSuffix)

	kind, ok := iwa.KindFromExtension(ext)
	if !ok {
		return nil, trace.Wrap(&UnknownDocumentTypeError{Extension: ext})
	}

	if info.IsDir() {
		return openDirectory(path, kind, tef, o)
	}
	return openZipPackage(path, kind, o)
}

func openDirectory(path string, kind Kind, tef bool, o openOptions) (*Document, error) {
	if existsIn(path, legacyMarkerXMLGz) || existsIn(path, legacyMarkerAPXLGz) {
		return legacyDocument(path, kind), nil
	}

	indexZip := filepath.Join(path, "Index.zip")
	indexDB := filepath.Join(path, "index.db")

	if tef {
		if _, err := os.Stat(indexZip); err != nil {
			if _, err := os.Stat(indexDB); err == nil {
				return openSQLiteBundle(path, indexDB, kind, o)
			}
		}
	}

	if _, err := os.Stat(indexZip); err != nil {
		return nil, trace.Wrap(MissingIndexArchiveError{})
	}

	metaStore, closeMeta, err := openOptionalDirectory(filepath.Join(path, "Metadata"))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer closeMeta()

	meta, err := metadata.Read(metaStore)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	indexStore, err := container.OpenZip(indexZip, "")
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer indexStore.Close()

	records, err := iwa.LoadAll(context.Background(), indexStore, indexSuffix, kind, o.registry, o.logger, o.concurrency)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	if err := checkKindAgreement(kind, records); err != nil {
		return nil, trace.Wrap(err)
	}

	assets, err := container.OpenDirectory(path)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	return &Document{
		Path:       path,
		Kind:       kind,
		Generation: GenerationModern,
		Metadata:   meta,
		Records:    records,
		Assets:     assets,
	}, nil
}

func openSQLiteBundle(path, indexDB string, kind Kind, o openOptions) (*Document, error) {
	db, err := legacy.OpenSQLiteContainer(indexDB)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer db.Close()

	records, err := db.Load(kind, o.registry, o.logger)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if err := checkKindAgreement(kind, records); err != nil {
		return nil, trace.Wrap(err)
	}

	metaStore, closeMeta, err := openOptionalDirectory(filepath.Join(path, "Metadata"))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer closeMeta()

	meta, err := metadata.Read(metaStore)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	assets, err := container.OpenDirectory(path)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	return &Document{
		Path:       path,
		Kind:       kind,
		Generation: GenerationModern,
		Metadata:   meta,
		Records:    records,
		Assets:     assets,
	}, nil
}

func openZipPackage(path string, kind Kind, o openOptions) (*Document, error) {
	root, err := container.OpenZip(path, "")
	if err != nil {
		return nil, trace.Wrap(err)
	}

	switch {
	case root.Contains(modernMarkerEntry):
		metaStore, err := container.OpenZip(path, "Metadata/")
		if err != nil {
			root.Close()
			return nil, trace.Wrap(err)
		}
		defer metaStore.Close()

		indexStore, err := container.OpenZip(path, "Index/")
		if err != nil {
			root.Close()
			return nil, trace.Wrap(err)
		}
		defer indexStore.Close()

		meta, err := metadata.Read(metaStore)
		if err != nil {
			root.Close()
			return nil, trace.Wrap(err)
		}

		records, err := iwa.LoadAll(context.Background(), indexStore, indexSuffix, kind, o.registry, o.logger, o.concurrency)
		if err != nil {
			root.Close()
			return nil, trace.Wrap(err)
		}

		if err := checkKindAgreement(kind, records); err != nil {
			root.Close()
			return nil, trace.Wrap(err)
		}

		return &Document{
			Path:       path,
			Kind:       kind,
			Generation: GenerationModern,
			Metadata:   meta,
			Records:    records,
			Assets:     root,
		}, nil

	case root.Contains(legacyMarkerXML) || root.Contains(legacyMarkerAPXL):
		root.Close()
		return legacyDocument(path, kind), nil

	default:
		root.Close()
		return nil, trace.Wrap(MissingIndexArchiveError{})
	}
}

func legacyDocument(path string, kind Kind) *Document {
	return &Document{
		Path:       path,
		Kind:       kind,
		Generation: GenerationLegacy,
		Records:    make(RecordMap),
	}
}

// checkKindAgreement re-derives Kind from the type tags actually present
// in records and fails if it disagrees with the extension-implied kind
// (spec.md §4.6 step 6). A record set with no recognizable marker tag at
// all is not a disagreement — not every package necessarily contains one
// of the probed root-archive types.
func checkKindAgreement(expected Kind, records RecordMap) error {
	typeTags := make(map[uint32]bool, len(records))
	for _, r := range records {
		typeTags[r.TypeTag] = true
	}
	found := iwa.DeriveKind(typeTags)
	if found != KindUnknown && found != expected {
		return &DocumentTypeMismatchError{Expected: expected, Found: found}
	}
	return nil
}

// existsIn reports whether name exists directly under dir.
func existsIn(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

// openOptionalDirectory opens dir as a Store if it exists, or returns an
// empty Store (every lookup reports absent) if it doesn't — Metadata/ is
// entirely optional per spec.md §6.
func openOptionalDirectory(dir string) (container.Store, func(), error) {
	if _, err := os.Stat(dir); err != nil {
		return emptyStore{}, func() {}, nil
	}
	backend, err := container.OpenDirectory(dir)
	if err != nil {
		return nil, nil, err
	}
	return backend, func() {}, nil
}

// emptyStore is a Store with no entries, used when an optional directory
// (Metadata/) is absent entirely.
type emptyStore struct{}

func (emptyStore) Read(path string) ([]byte, error)  { return nil, &container.EntryNotFoundError{Path: path} }
func (emptyStore) Size(path string) (uint64, error)   { return 0, &container.EntryNotFoundError{Path: path} }
func (emptyStore) Contains(string) bool               { return false }
func (emptyStore) List(string) ([]string, error)      { return nil, nil }
