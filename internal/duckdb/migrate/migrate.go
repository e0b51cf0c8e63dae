// Package migrate versions the history schema. Files under migrations/ are
// named NNN_description.sql and applied once each, in version order.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Step is one schema change.
type Step struct {
	Version int
	Name    string
	SQL     string
}

// Runner applies pending steps and records them in schema_migrations.
type Runner struct {
	db    *sql.DB
	files fs.FS
}

// NewRunner creates a runner over the embedded history schema.
func NewRunner(db *sql.DB) *Runner {
	sub, _ := fs.Sub(embedded, "migrations")
	return &Runner{db: db, files: sub}
}

// NewRunnerFS creates a runner over the *.sql files at the root of files.
func NewRunnerFS(db *sql.DB, files fs.FS) *Runner {
	return &Runner{db: db, files: files}
}

// Steps lists the available steps sorted by version. Duplicate versions are
// an error.
func (r *Runner) Steps() ([]Step, error) {
	names, err := fs.Glob(r.files, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	steps := make([]Step, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, name := range names {
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: bad version prefix %q", name, prefix)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration %s: version %d already used by %s", name, version, prev)
		}
		seen[version] = name

		body, err := fs.ReadFile(r.files, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		steps = append(steps, Step{Version: version, Name: path.Base(name), SQL: string(body)})
	}

	slices.SortFunc(steps, func(a, b Step) int { return a.Version - b.Version })
	return steps, nil
}

func (r *Runner) ensureTable() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT current_timestamp
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}
	return nil
}

// Version returns the highest applied version, 0 on a fresh database.
func (r *Runner) Version() (int, error) {
	if err := r.ensureTable(); err != nil {
		return 0, err
	}
	var v sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return int(v.Int64), nil
}

// Pending returns the steps newer than the applied version.
func (r *Runner) Pending() ([]Step, error) {
	current, err := r.Version()
	if err != nil {
		return nil, err
	}
	steps, err := r.Steps()
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(steps, func(s Step) bool { return s.Version > current })
	if idx < 0 {
		return nil, nil
	}
	return steps[idx:], nil
}

// Run applies every pending step, each in its own transaction, and returns
// the names of the applied steps.
func (r *Runner) Run() ([]string, error) {
	pending, err := r.Pending()
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(pending))
	for _, step := range pending {
		if err := r.apply(step); err != nil {
			return applied, err
		}
		applied = append(applied, step.Name)
	}
	return applied, nil
}

func (r *Runner) apply(step Step) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin %s: %w", step.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(step.SQL); err != nil {
		return fmt.Errorf("executing %s: %w", step.Name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", step.Version, step.Name); err != nil {
		return fmt.Errorf("recording %s: %w", step.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", step.Name, err)
	}
	return nil
}
