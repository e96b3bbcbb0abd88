// Package legacy handles the SQLite-backed ".pages-tef" container shape
// (iWork 5.5-era exports) that store their record index in an index.db
// file instead of Index.zip. This is a container-shape feature the
// teacher implements (detectTypeFromSQL/loadSQL) that spec.md's
// distillation dropped; it is not a reopening of legacy XML support,
// which remains out of scope (SPEC_FULL.md §13).
package legacy

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/netwrix/iworkcore/iwa"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteContainer wraps a read-only handle to a .pages-tef package's
// index.db.
type SQLiteContainer struct {
	db *sql.DB
}

// OpenSQLiteContainer opens the SQLite database at path.
func OpenSQLiteContainer(path string) (*SQLiteContainer, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("legacy: opening %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("legacy: opening %s: %w", path, err)
	}
	return &SQLiteContainer{db: db}, nil
}

// Close releases the underlying database handle.
func (c *SQLiteContainer) Close() error { return c.db.Close() }

// TypeTags returns every distinct object class (schema type tag) among
// the first 100 rows of the objects table, the same sample teacher's
// detectTypeFromSQL probes to derive a document kind before the full
// record load runs.
func (c *SQLiteContainer) TypeTags() (map[uint32]bool, error) {
	rows, err := c.db.Query(`select o.class from objects o limit 100`)
	if err != nil {
		return nil, fmt.Errorf("legacy: querying object classes: %w", err)
	}
	defer rows.Close()

	tags := make(map[uint32]bool)
	for rows.Next() {
		var class uint32
		if err := rows.Scan(&class); err != nil {
			return nil, fmt.Errorf("legacy: scanning object class: %w", err)
		}
		tags[class] = true
	}
	return tags, rows.Err()
}

// Load decodes every object row into the record map via registry,
// mirroring the teacher's loadSQL join of objects to their current
// dataStates row. Decode failures are non-fatal, exactly as in the
// modern IWA loader: the record is simply omitted.
func (c *SQLiteContainer) Load(kind iwa.Kind, registry iwa.TypeRegistry, logger *slog.Logger) (iwa.RecordMap, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rows, err := c.db.Query(`
		select o.identifier, o.class, ds.state
		from objects o
		join dataStates ds on o.state = ds.identifier
	`)
	if err != nil {
		return nil, fmt.Errorf("legacy: querying objects: %w", err)
	}
	defer rows.Close()

	records := make(iwa.RecordMap)
	for rows.Next() {
		var id uint64
		var class uint32
		var data []byte
		if err := rows.Scan(&id, &class, &data); err != nil {
			return nil, fmt.Errorf("legacy: scanning object row: %w", err)
		}
		msg, ok := registry.Decode(kind, class, data)
		if !ok {
			logger.Warn("dropping undecodable legacy record", "identifier", id, "type", class)
			continue
		}
		records[id] = iwa.Record{Identifier: id, TypeTag: class, Value: msg}
	}
	return records, rows.Err()
}
