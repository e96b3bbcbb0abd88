// Package metadata reads the small set of property-list files iWork
// packages carry alongside their Index: the document identifier, build
// version history, and free-form document properties.
package metadata

import (
	"fmt"
	"strings"

	"github.com/netwrix/iworkcore/container"
	"howett.net/plist"
)

const (
	propertiesPath = "Properties.plist"
	identifierPath = "DocumentIdentifier"
	buildHistory   = "BuildVersionHistory.plist"
)

// Metadata holds the package-level facts spec.md §6 names. Every field is
// optional: missing files are tolerated silently and leave the
// corresponding field at its zero value (spec.md §7's propagation
// policy).
type Metadata struct {
	DocumentIdentifier  string
	BuildVersionHistory []string
	Properties          map[string]interface{}
}

// ParsingFailedError reports a metadata file that exists but could not be
// parsed (as opposed to one that's simply absent, which is not an error).
type ParsingFailedError struct {
	File string
	Err  error
}

func (e *ParsingFailedError) Error() string {
	return fmt.Sprintf("metadata: failed to parse %s: %v", e.File, e.Err)
}

func (e *ParsingFailedError) Unwrap() error { return e.Err }

// Read loads every recognized metadata file present in store, which must
// already be rooted at (or prefixed to) the package's Metadata/
// directory.
func Read(store container.Store) (Metadata, error) {
	var m Metadata

	if store.Contains(identifierPath) {
		raw, err := store.Read(identifierPath)
		if err != nil {
			return m, &ParsingFailedError{File: identifierPath, Err: err}
		}
		m.DocumentIdentifier = strings.TrimSpace(string(raw))
	}

	if store.Contains(buildHistory) {
		raw, err := store.Read(buildHistory)
		if err != nil {
			return m, &ParsingFailedError{File: buildHistory, Err: err}
		}
		var history []string
		if err := plist.Unmarshal(raw, &history); err != nil {
			return m, &ParsingFailedError{File: buildHistory, Err: err}
		}
		m.BuildVersionHistory = history
	}

	if store.Contains(propertiesPath) {
		raw, err := store.Read(propertiesPath)
		if err != nil {
			return m, &ParsingFailedError{File: propertiesPath, Err: err}
		}
		var props map[string]interface{}
		if err := plist.Unmarshal(raw, &props); err != nil {
			return m, &ParsingFailedError{File: propertiesPath, Err: err}
		}
		m.Properties = props
	}

	return m, nil
}
