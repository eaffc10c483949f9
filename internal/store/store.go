// Package store provides optional SQLite-backed persistence for the
// ChronoSync digest log's own-sequence-number position and the FullPSync
// published-name set, so a restarted participant does not have to rejoin a
// group as a "00" newcomer or republish names it already advertised.
// sql.Open("sqlite", path), a blank import for the driver, small
// hand-written SQL, no ORM.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ndnsync/ndnsync/internal/ndnlog"
)

// Store is a thin wrapper over a single SQLite file. Nil-safe: every method
// on a nil *Store is a no-op returning ok=false / no error, so callers can
// carry an optional *Store field without branching on "is persistence
// enabled" at every call site.
type Store struct {
	db  *sql.DB
	log *ndnlog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS chronosync_position (
	data_prefix TEXT PRIMARY KEY,
	session_no  INTEGER NOT NULL,
	sequence_no INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS psync_names (
	sync_prefix TEXT NOT NULL,
	name        TEXT NOT NULL,
	PRIMARY KEY (sync_prefix, name)
);
`

// Open opens (creating if absent) a SQLite database at path and ensures its
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate %s: %w", path, err)
	}
	return &Store{db: db, log: ndnlog.New("store")}, nil
}

// Close releases the underlying database handle. Safe on a nil *Store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// SaveChronoSyncPosition records dataPrefix's latest published (sessionNo,
// sequenceNo). Safe on a nil *Store.
func (s *Store) SaveChronoSyncPosition(dataPrefix string, sessionNo uint64, sequenceNo int64) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO chronosync_position (data_prefix, session_no, sequence_no) VALUES (?, ?, ?)
		 ON CONFLICT(data_prefix) DO UPDATE SET session_no = excluded.session_no, sequence_no = excluded.sequence_no`,
		dataPrefix, sessionNo, sequenceNo,
	)
	if err != nil {
		return fmt.Errorf("store: save chronosync position for %s: %w", dataPrefix, err)
	}
	return nil
}

// LoadChronoSyncPosition returns the last persisted (sessionNo, sequenceNo)
// for dataPrefix, if any. Safe on a nil *Store (returns found=false).
func (s *Store) LoadChronoSyncPosition(dataPrefix string) (sessionNo uint64, sequenceNo int64, found bool, err error) {
	if s == nil {
		return 0, 0, false, nil
	}
	row := s.db.QueryRow(`SELECT session_no, sequence_no FROM chronosync_position WHERE data_prefix = ?`, dataPrefix)
	if scanErr := row.Scan(&sessionNo, &sequenceNo); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("store: load chronosync position for %s: %w", dataPrefix, scanErr)
	}
	return sessionNo, sequenceNo, true, nil
}

// AddPSyncName records name as published under syncPrefix. Safe on a nil
// *Store.
func (s *Store) AddPSyncName(syncPrefix, name string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO psync_names (sync_prefix, name) VALUES (?, ?)`, syncPrefix, name)
	if err != nil {
		return fmt.Errorf("store: add psync name %s under %s: %w", name, syncPrefix, err)
	}
	return nil
}

// LoadPSyncNames returns every name persisted under syncPrefix. Safe on a
// nil *Store (returns a nil slice and no error).
func (s *Store) LoadPSyncNames(syncPrefix string) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.Query(`SELECT name FROM psync_names WHERE sync_prefix = ?`, syncPrefix)
	if err != nil {
		return nil, fmt.Errorf("store: load psync names under %s: %w", syncPrefix, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scan psync name under %s: %w", syncPrefix, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
