package container

import (
	"archive/zip"
	"io"
	"sort"
	"strings"
)

// ZipBackend wraps a read-only ZIP archive opened once at construction.
// Grounded on the teacher's zip.OpenReader(fn) / zip.OpenReader(doc)
// handling in index.Open.
type ZipBackend struct {
	mu
	reader  *zip.ReadCloser
	entries map[string]*zip.File
	prefix  string
}

// OpenZip opens the ZIP archive at path. prefix, if non-empty, is
// stripped from every entry name (and must end with "/") so callers can
// present paths relative to a logical root other than the archive root
// (e.g. a bundle whose metadata ZIP is rooted one level down).
func OpenZip(path string, prefix string) (*ZipBackend, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, &EntryReadFailedError{Path: path, Err: err}
	}
	return newZipBackend(rc, prefix), nil
}

func newZipBackend(rc *zip.ReadCloser, prefix string) *ZipBackend {
	b := &ZipBackend{reader: rc, entries: make(map[string]*zip.File), prefix: prefix}
	for _, f := range rc.File {
		name := f.Name
		if prefix != "" {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			name = strings.TrimPrefix(name, prefix)
		}
		b.entries[name] = f
	}
	return b
}

// Close releases the underlying archive handle.
func (b *ZipBackend) Close() error {
	return b.reader.Close()
}

func (b *ZipBackend) Read(path string) ([]byte, error) {
	b.Lock()
	defer b.Unlock()

	f, ok := b.entries[path]
	if !ok {
		return nil, &EntryNotFoundError{Path: path}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &EntryReadFailedError{Path: path, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &EntryReadFailedError{Path: path, Err: err}
	}
	return data, nil
}

func (b *ZipBackend) Size(path string) (uint64, error) {
	b.Lock()
	defer b.Unlock()

	f, ok := b.entries[path]
	if !ok {
		return 0, &EntryNotFoundError{Path: path}
	}
	return f.UncompressedSize64, nil
}

func (b *ZipBackend) Contains(path string) bool {
	b.Lock()
	defer b.Unlock()

	_, ok := b.entries[path]
	return ok
}

func (b *ZipBackend) List(suffix string) ([]string, error) {
	b.Lock()
	defer b.Unlock()

	var out []string
	for name := range b.entries {
		if strings.HasSuffix(name, suffix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}
