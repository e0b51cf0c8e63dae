package duckdb

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/tinytelemetry/hostdeck/internal/model"
)

// InsertSamples appends the metrics of one cycle in a single transaction.
func (s *Store) InsertSamples(cycle uint64, samples []model.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO samples (cycle, sampled_at, metric, value, unit) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range samples {
		at := m.Timestamp
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, int64(cycle), at.UTC(), m.Name, m.Value, m.Unit); err != nil {
			return fmt.Errorf("insert %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// History returns the latest limit points of metric, oldest first.
func (s *Store) History(metric string, limit int) ([]model.HistoryPoint, error) {
	if limit <= 0 {
		limit = model.DefaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sampled_at, cycle, value FROM (
			SELECT sampled_at, cycle, value
			FROM samples
			WHERE metric = ?
			ORDER BY sampled_at DESC, cycle DESC
			LIMIT ?
		)
		ORDER BY sampled_at ASC, cycle ASC`, metric, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []model.HistoryPoint
	for rows.Next() {
		var (
			p     model.HistoryPoint
			cycle int64
		)
		if err := rows.Scan(&p.At, &cycle, &p.Value); err != nil {
			log.Printf("duckdb scan error (History): %v", err)
			continue
		}
		p.Cycle = uint64(cycle)
		points = append(points, p)
	}
	return points, rows.Err()
}

// ListMetrics returns the distinct stored metric names in sorted order.
func (s *Store) ListMetrics() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT metric FROM samples ORDER BY metric`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SampleCount returns the number of stored rows.
func (s *Store) SampleCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n)
	return n, err
}

// HistoryMark returns the stored row count and the newest sample time.
// Unlike cycle numbers, the pair keeps moving across daemon restarts.
// newest is the zero time when the table is empty.
func (s *Store) HistoryMark() (rows int64, newest time.Time, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var latest sql.NullTime
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(sampled_at) FROM samples`).Scan(&rows, &latest)
	if err != nil {
		return 0, time.Time{}, err
	}
	if latest.Valid {
		newest = latest.Time.UTC()
	}
	return rows, newest, nil
}

// DeleteBefore removes samples older than cutoff and reports how many rows
// were deleted.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE sampled_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
