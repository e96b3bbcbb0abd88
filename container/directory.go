package container

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirectoryBackend walks a root directory recursively, presenting entry
// paths relative to root with forward slashes regardless of host OS path
// separators.
type DirectoryBackend struct {
	mu
	root string
}

// OpenDirectory returns a DirectoryBackend rooted at root.
func OpenDirectory(root string) (*DirectoryBackend, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &EntryReadFailedError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &EntryReadFailedError{Path: root, Err: os.ErrInvalid}
	}
	return &DirectoryBackend{root: root}, nil
}

func (b *DirectoryBackend) abs(path string) string {
	return filepath.Join(b.root, filepath.FromSlash(path))
}

func (b *DirectoryBackend) Read(path string) ([]byte, error) {
	b.Lock()
	defer b.Unlock()

	data, err := os.ReadFile(b.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &EntryNotFoundError{Path: path}
		}
		return nil, &EntryReadFailedError{Path: path, Err: err}
	}
	return data, nil
}

func (b *DirectoryBackend) Size(path string) (uint64, error) {
	b.Lock()
	defer b.Unlock()

	info, err := os.Stat(b.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &EntryNotFoundError{Path: path}
		}
		return 0, &EntryReadFailedError{Path: path, Err: err}
	}
	return uint64(info.Size()), nil
}

func (b *DirectoryBackend) Contains(path string) bool {
	b.Lock()
	defer b.Unlock()

	_, err := os.Stat(b.abs(path))
	return err == nil
}

func (b *DirectoryBackend) List(suffix string) ([]string, error) {
	b.Lock()
	defer b.Unlock()

	var out []string
	err := filepath.Walk(b.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasSuffix(rel, suffix) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, &EntryReadFailedError{Path: b.root, Err: err}
	}
	sort.Strings(out)
	return out, nil
}
