package descriptor

import (
	"fmt"
	"sort"
)

// CircularDependencyError is returned when no file in the remaining set
// has all of its in-set dependencies already emitted.
type CircularDependencyError struct{}

func (CircularDependencyError) Error() string { return "descriptor: circular dependency among scanned files" }

// MissingDependencyError is returned when a dependency edge points at a
// file this sort's internal bookkeeping can no longer account for. In
// normal operation every dependency name either resolves to another file
// in the set (and is ordered before its dependent) or is treated as an
// external import and ignored (spec.md §4.7: "only edges pointing to
// files also in the set count; external imports are assumed satisfied").
// This error exists for the degenerate case spec.md §7 names explicitly;
// well-formed scans should never trigger it.
type MissingDependencyError struct {
	Path string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("descriptor: dependency %q could not be resolved", e.Path)
}

// Sort topologically orders files by their Dependencies edges: every
// file appears after all of its in-set dependencies. Order among
// equally-ready files is deterministic (lexicographic by path). files is
// sorted in place and also returned for chaining.
func Sort(files []*ProtoFile) ([]*ProtoFile, error) {
	byPath := make(map[string]*ProtoFile, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}

	// remaining in-set dependency counts, and the reverse edges needed to
	// decrement them as files are emitted.
	remaining := make(map[string]map[string]bool, len(files))
	dependents := make(map[string][]string, len(files))
	for _, f := range files {
		deps := make(map[string]bool)
		for _, dep := range f.Dependencies {
			if _, inSet := byPath[dep]; !inSet {
				continue // external import, assumed satisfied
			}
			if dep == f.Path {
				continue // self-dependency trivially satisfied
			}
			deps[dep] = true
			dependents[dep] = append(dependents[dep], f.Path)
		}
		remaining[f.Path] = deps
	}

	var sorted []*ProtoFile
	done := make(map[string]bool, len(files))
	for len(sorted) < len(files) {
		var ready []string
		for path, deps := range remaining {
			if done[path] {
				continue
			}
			if len(deps) == 0 {
				ready = append(ready, path)
			}
		}
		if len(ready) == 0 {
			return nil, CircularDependencyError{}
		}
		sort.Strings(ready)

		for _, path := range ready {
			f, ok := byPath[path]
			if !ok {
				return nil, &MissingDependencyError{Path: path}
			}
			sorted = append(sorted, f)
			done[path] = true
			delete(remaining, path)
			for _, dependent := range dependents[path] {
				delete(remaining[dependent], path)
			}
		}
	}

	copy(files, sorted)
	return files, nil
}
