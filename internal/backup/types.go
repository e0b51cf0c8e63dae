package backup

import "time"

// Config controls periodic snapshots of the history database.
type Config struct {
	Enabled  bool
	Interval time.Duration
	LocalDir string
	KeepLast int
}

// Snapshotter is the store contract the Manager needs.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(dstPath string) error
}

// MarkReporter is implemented by stores that can summarize what they hold.
// The Manager skips a snapshot when the mark has not moved since the last one.
type MarkReporter interface {
	HistoryMark() (rows int64, newest time.Time, err error)
}

// Snapshot is one file in the backup directory.
type Snapshot struct {
	Path  string
	Taken time.Time
}
