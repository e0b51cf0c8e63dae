package duckdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInMemoryStore indicates the store has no file to snapshot.
var ErrInMemoryStore = errors.New("duckdb: in-memory store cannot be snapshotted")

const (
	snapshotAlias   = "hostdeck_snapshot"
	snapshotTimeout = time.Minute
)

// SnapshotTo writes a consistent copy of the database to dstPath. DuckDB
// copies the catalog into a freshly attached file, which is renamed into
// place once it is detached.
func (s *Store) SnapshotTo(dstPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dbPath == "" {
		return ErrInMemoryStore
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := dstPath + ".tmp"
	_ = os.Remove(tmp)
	if err := s.copyDatabase(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dstPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (s *Store) copyDatabase(path string) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	// ATTACH is scoped to the connection, so pin one.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("snapshot conn: %w", err)
	}
	defer conn.Close()

	var source string
	if err := conn.QueryRowContext(ctx, "SELECT current_database()").Scan(&source); err != nil {
		return fmt.Errorf("snapshot source: %w", err)
	}

	attach := fmt.Sprintf("ATTACH '%s' AS %s", strings.ReplaceAll(path, "'", "''"), snapshotAlias)
	if _, err := conn.ExecContext(ctx, attach); err != nil {
		return fmt.Errorf("attach snapshot: %w", err)
	}
	defer func() {
		if _, derr := conn.ExecContext(context.Background(), "DETACH "+snapshotAlias); derr != nil && err == nil {
			err = fmt.Errorf("detach snapshot: %w", derr)
		}
	}()

	copyStmt := fmt.Sprintf(`COPY FROM DATABASE "%s" TO %s`, strings.ReplaceAll(source, `"`, `""`), snapshotAlias)
	if _, err := conn.ExecContext(ctx, copyStmt); err != nil {
		return fmt.Errorf("copy database: %w", err)
	}
	return nil
}
