package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeSnapshotter struct {
	dbPath string
	data   []byte
	writes int
}

func (f *fakeSnapshotter) DBPath() string { return f.dbPath }

func (f *fakeSnapshotter) SnapshotTo(dstPath string) error {
	f.writes++
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(dstPath, f.data, 0644)
}

// markingStore also reports a history mark.
type markingStore struct {
	fakeSnapshotter
	rows   int64
	newest time.Time
	err    error
}

func (c *markingStore) HistoryMark() (int64, time.Time, error) { return c.rows, c.newest, c.err }

func steppingClock() func() time.Time {
	clock := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
}

func TestNewManager_Disabled(t *testing.T) {
	t.Parallel()

	m, err := NewManager(&fakeSnapshotter{dbPath: "/tmp/hostdeck.duckdb"}, Config{})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manager when disabled")
	}
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		store Snapshotter
		cfg   Config
	}{
		"nil store":     {nil, Config{Enabled: true, LocalDir: t.TempDir()}},
		"in-memory":     {&fakeSnapshotter{}, Config{Enabled: true, LocalDir: t.TempDir()}},
		"no backup dir": {&fakeSnapshotter{dbPath: "/tmp/h.duckdb"}, Config{Enabled: true}},
	}
	for name, tc := range cases {
		if _, err := NewManager(tc.store, tc.cfg); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRunOnce_CreatesAndPrunes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := &Manager{
		store: &fakeSnapshotter{dbPath: "/tmp/hostdeck.duckdb", data: []byte("snapshot")},
		cfg:   Config{Enabled: true, LocalDir: dir, KeepLast: 2},
		now:   steppingClock(),
	}

	for i := 0; i < 3; i++ {
		wrote, err := m.RunOnce()
		if err != nil {
			t.Fatalf("RunOnce #%d: %v", i+1, err)
		}
		if !wrote {
			t.Fatalf("RunOnce #%d skipped without a cycle reporter", i+1)
		}
	}

	snaps, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("kept %d snapshots, want 2: %v", len(snaps), snaps)
	}
	if want := time.Date(2026, 5, 1, 8, 0, 3, 0, time.UTC); !snaps[0].Taken.Equal(want) {
		t.Fatalf("newest snapshot taken %s, want %s", snaps[0].Taken, want)
	}
	if _, err := os.Stat(filepath.Join(dir, filePrefix+"20260501-080001.000.duckdb")); !os.IsNotExist(err) {
		t.Fatalf("oldest snapshot should be pruned, stat err = %v", err)
	}
}

func TestRunOnce_SkipsUnchangedHistory(t *testing.T) {
	t.Parallel()

	store := &markingStore{fakeSnapshotter: fakeSnapshotter{dbPath: "/tmp/hostdeck.duckdb"}}
	m := &Manager{store: store, cfg: Config{LocalDir: t.TempDir(), KeepLast: 8}, now: steppingClock()}

	t0 := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	steps := []struct {
		rows   int64
		newest time.Time
		err    error
		wrote  bool
	}{
		{5, t0, nil, true},
		{5, t0, nil, false},
		{5, t0.In(time.FixedZone("CEST", 2*3600)), nil, false},
		{6, t0.Add(time.Second), nil, true},
		{4, t0.Add(time.Second), nil, true},
		{4, t0.Add(time.Second), errors.New("db busy"), true},
	}
	for i, s := range steps {
		store.rows, store.newest, store.err = s.rows, s.newest, s.err
		wrote, err := m.RunOnce()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if wrote != s.wrote {
			t.Fatalf("step %d: wrote = %v, want %v", i, wrote, s.wrote)
		}
	}
	if store.writes != 4 {
		t.Fatalf("snapshot writes = %d, want 4", store.writes)
	}
}

func TestList_IgnoresForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{
		filePrefix + "20260501-080000.000.duckdb",
		filePrefix + "garbage.duckdb",
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	snaps, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("List = %v, want one snapshot", snaps)
	}
}

func TestNewManager_StartupSnapshotAndStop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m, err := NewManager(&fakeSnapshotter{dbPath: "/tmp/hostdeck.duckdb", data: []byte("x")},
		Config{Enabled: true, LocalDir: dir, Interval: time.Hour})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.Stop()
	m.Stop()

	snaps, _ := List(dir)
	if len(snaps) != 1 {
		t.Fatalf("startup snapshots = %d, want 1", len(snaps))
	}
}
