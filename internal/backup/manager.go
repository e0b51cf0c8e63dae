// Package backup keeps rotating local snapshots of the history database.
package backup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 8
	filePrefix      = "hostdeck-"
	fileSuffix      = ".duckdb"
	stampLayout     = "20060102-150405.000"
)

// Manager snapshots the store on an interval and prunes old copies.
type Manager struct {
	store Snapshotter
	cfg   Config
	now   func() time.Time

	mu       sync.Mutex
	lastMark historyMark
	haveMark bool

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewManager takes a startup snapshot and starts the loop. It returns nil
// when backups are disabled.
func NewManager(store Snapshotter, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, fmt.Errorf("backup: history is in memory, nothing to snapshot")
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("backup: backup-dir is required when backups are enabled")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create backup-dir: %w", err)
	}

	m := &Manager{store: store, cfg: cfg, now: time.Now, done: make(chan struct{})}

	if _, err := m.RunOnce(); err != nil {
		log.Printf("backup: startup snapshot failed: %v", err)
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.RunOnce(); err != nil {
				log.Printf("backup: periodic snapshot failed: %v", err)
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce writes one snapshot and prunes copies beyond KeepLast. It reports
// false without writing when the history has not changed since the last
// snapshot.
func (m *Manager) RunOnce() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mark, known := m.historyMark()
	if known && m.haveMark && mark.equal(m.lastMark) {
		return false, nil
	}

	path := filepath.Join(m.cfg.LocalDir, filePrefix+m.now().UTC().Format(stampLayout)+fileSuffix)
	if err := m.store.SnapshotTo(path); err != nil {
		return false, fmt.Errorf("snapshot: %w", err)
	}
	if known {
		m.lastMark, m.haveMark = mark, true
	}
	log.Printf("backup: created snapshot %s", path)

	if err := m.prune(); err != nil {
		return true, fmt.Errorf("prune: %w", err)
	}
	return true, nil
}

type historyMark struct {
	rows   int64
	newest time.Time
}

func (h historyMark) equal(o historyMark) bool {
	return h.rows == o.rows && h.newest.Equal(o.newest)
}

func (m *Manager) historyMark() (historyMark, bool) {
	mr, ok := m.store.(MarkReporter)
	if !ok {
		return historyMark{}, false
	}
	rows, newest, err := mr.HistoryMark()
	if err != nil {
		log.Printf("backup: reading history mark: %v", err)
		return historyMark{}, false
	}
	return historyMark{rows: rows, newest: newest.UTC()}, true
}

// Stop terminates the loop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

// List returns the snapshots in dir, newest first. Files whose names do not
// carry a snapshot timestamp are ignored.
func List(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var snaps []Snapshot
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		taken, err := time.Parse(stampLayout, stamp)
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{Path: filepath.Join(dir, name), Taken: taken})
	}

	slices.SortFunc(snaps, func(a, b Snapshot) int { return b.Taken.Compare(a.Taken) })
	return snaps, nil
}

func (m *Manager) prune() error {
	snaps, err := List(m.cfg.LocalDir)
	if err != nil {
		return err
	}
	if len(snaps) <= m.cfg.KeepLast {
		return nil
	}
	for _, old := range snaps[m.cfg.KeepLast:] {
		if err := os.Remove(old.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
