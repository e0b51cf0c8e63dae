// Package duckdb keeps the metric history of published boards in DuckDB.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/hostdeck/internal/duckdb/migrate"
)

// Store manages the DuckDB connection and the samples table.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	QueryTimeout time.Duration
}

// NewStore opens or creates a DuckDB database. An empty dbPath gives an
// in-memory database. queryTimeout defaults to 10s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, err
	}

	applied, err := migrate.NewRunner(db).Run()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", displayPath(dbPath), err)
	}
	for _, name := range applied {
		log.Printf("duckdb: applied migration %s", name)
	}

	qt := 10 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{db: db, dbPath: dbPath, QueryTimeout: qt}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the configured path. Empty means in-memory.
func (s *Store) DBPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dbPath
}

func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

func displayPath(p string) string {
	if p == "" {
		return ":memory:"
	}
	return p
}
