package duckdb

import (
	"log"
	"sync"
	"time"
)

// DefaultRetention is how long samples are kept when no retention is configured.
const DefaultRetention = 24 * time.Hour

// RetentionConfig holds configuration for the retention cleaner.
type RetentionConfig struct {
	Retention time.Duration
	Interval  time.Duration
}

// RetentionCleaner periodically deletes samples older than the retention window.
type RetentionCleaner struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewRetentionCleaner runs one cleanup immediately and then one per interval
// (hourly by default). It returns nil when retention is negative (disabled).
func NewRetentionCleaner(store *Store, conf ...RetentionConfig) *RetentionCleaner {
	retention := DefaultRetention
	interval := time.Hour
	if len(conf) > 0 {
		if conf[0].Retention != 0 {
			retention = conf[0].Retention
		}
		if conf[0].Interval > 0 {
			interval = conf[0].Interval
		}
	}
	if retention < 0 {
		return nil
	}

	rc := &RetentionCleaner{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		done:      make(chan struct{}),
	}

	rc.cleanup()

	rc.wg.Add(1)
	go rc.tickLoop()

	return rc
}

func (rc *RetentionCleaner) tickLoop() {
	defer rc.wg.Done()
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.cleanup()
		case <-rc.done:
			return
		}
	}
}

func (rc *RetentionCleaner) cleanup() {
	rows, err := rc.store.DeleteBefore(rc.now().Add(-rc.retention))
	if err != nil {
		log.Printf("duckdb: retention cleanup error: %v", err)
		return
	}
	if rows > 0 {
		log.Printf("duckdb: retention cleanup deleted %d samples older than %s", rows, rc.retention)
	}
}

// Stop signals the cleaner to stop and waits for it to finish.
func (rc *RetentionCleaner) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}
