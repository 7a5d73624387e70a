package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/san-kum/mbsim/internal/dynamo"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	device      TEXT NOT NULL,
	scenario    TEXT NOT NULL,
	solver      TEXT NOT NULL,
	format      TEXT NOT NULL,
	output      TEXT NOT NULL,
	autosave    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	elapsed_ns  INTEGER NOT NULL,
	steps       INTEGER NOT NULL,
	gridpoints  INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// Run is one catalogued simulation.
type Run struct {
	ID         string
	Device     string
	Scenario   string
	Solver     string
	Format     string
	Output     string
	Autosave   string
	Status     string
	Elapsed    time.Duration
	Steps      int
	Gridpoints int
	CreatedAt  time.Time
}

// Store is the run catalog, a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &dynamo.IOError{Op: "mkdir", Path: path, Wrapped: err}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &dynamo.IOError{Op: "open", Path: path, Wrapped: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &dynamo.IOError{Op: "open", Path: path, Wrapped: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &dynamo.IOError{Op: "migrate", Path: path, Wrapped: err}
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a run. A run without ID gets a fresh one, a
// run without timestamp the current time. The stored ID is returned.
func (s *Store) Save(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO runs
		(id, device, scenario, solver, format, output, autosave, status, elapsed_ns, steps, gridpoints, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Device, r.Scenario, r.Solver, r.Format, r.Output, r.Autosave, r.Status,
		r.Elapsed.Nanoseconds(), r.Steps, r.Gridpoints, r.CreatedAt.UnixNano())
	if err != nil {
		return "", &dynamo.IOError{Op: "insert", Path: s.path, Wrapped: err}
	}
	return r.ID, nil
}

// List returns all runs, newest first.
func (s *Store) List() ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, device, scenario, solver, format, output, autosave, status,
		elapsed_ns, steps, gridpoints, created_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, &dynamo.IOError{Op: "query", Path: s.path, Wrapped: err}
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, &dynamo.IOError{Op: "scan", Path: s.path, Wrapped: err}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &dynamo.IOError{Op: "query", Path: s.path, Wrapped: err}
	}
	return runs, nil
}

func (s *Store) Load(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT id, device, scenario, solver, format, output, autosave, status,
		elapsed_ns, steps, gridpoints, created_at FROM runs WHERE id = ?`, id)
	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", id, dynamo.ErrNotFound)
	}
	if err != nil {
		return nil, &dynamo.IOError{Op: "query", Path: s.path, Wrapped: err}
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (Run, error) {
	var (
		r         Run
		elapsedNs int64
		createdNs int64
	)
	err := sc.Scan(&r.ID, &r.Device, &r.Scenario, &r.Solver, &r.Format, &r.Output, &r.Autosave, &r.Status,
		&elapsedNs, &r.Steps, &r.Gridpoints, &createdNs)
	if err != nil {
		return Run{}, err
	}
	r.Elapsed = time.Duration(elapsedNs)
	r.CreatedAt = time.Unix(0, createdNs)
	return r, nil
}
