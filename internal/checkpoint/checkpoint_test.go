package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	warnings []string
}

func (r *recordingLogger) LogDebug(message string) {}

func (r *recordingLogger) LogWarn(message string) {
	r.warnings = append(r.warnings, message)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		content  *string
		want     time.Time
		wantWarn bool
	}{
		{
			name:     "missing file falls back to epoch",
			content:  nil,
			want:     Epoch,
			wantWarn: true,
		},
		{
			name:    "naive timestamp is local time",
			content: strPtr("2022-01-01T00:00:00"),
			want:    time.Date(2022, 1, 1, 0, 0, 0, 0, time.Local),
		},
		{
			name:    "naive timestamp with microseconds and newline",
			content: strPtr("2024-03-05T10:11:12.123456\n"),
			want:    time.Date(2024, 3, 5, 10, 11, 12, 123456000, time.Local),
		},
		{
			name:    "minute precision",
			content: strPtr("2022-01-01T00:00"),
			want:    time.Date(2022, 1, 1, 0, 0, 0, 0, time.Local),
		},
		{
			name:    "date only",
			content: strPtr("2022-01-01"),
			want:    time.Date(2022, 1, 1, 0, 0, 0, 0, time.Local),
		},
		{
			name:    "space separated",
			content: strPtr("2024-03-05 10:00:00"),
			want:    time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local),
		},
		{
			name:    "space separated minute precision",
			content: strPtr("2024-03-05 10:00"),
			want:    time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local),
		},
		{
			name:    "rfc3339 with offset",
			content: strPtr("2024-03-05T12:00:00+02:00"),
			want:    time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "basic offset without colon",
			content: strPtr("2022-01-01T00:00:00+0200"),
			want:    time.Date(2021, 12, 31, 22, 0, 0, 0, time.UTC),
		},
		{
			name:    "minute precision with offset",
			content: strPtr("2022-01-01T00:00+02:00"),
			want:    time.Date(2021, 12, 31, 22, 0, 0, 0, time.UTC),
		},
		{
			name:    "space separated with offset",
			content: strPtr("2024-03-05 12:00:00.5-0100"),
			want:    time.Date(2024, 3, 5, 13, 0, 0, 500000000, time.UTC),
		},
		{
			name:    "utc designator",
			content: strPtr("2024-03-05T10:00:00Z"),
			want:    time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "malformed content falls back to epoch",
			content:  strPtr("yesterday"),
			want:     Epoch,
			wantWarn: true,
		},
		{
			name:     "empty file falls back to epoch",
			content:  strPtr(""),
			want:     Epoch,
			wantWarn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".arath.timestamp")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0644))
			}

			logger := &recordingLogger{}
			got := NewStore(path, logger).Load()

			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			if tt.wantWarn {
				assert.Len(t, logger.warnings, 1)
			} else {
				assert.Empty(t, logger.warnings)
			}
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	// A directory in place of the file cannot be read as one.
	path := filepath.Join(t.TempDir(), "checkpoint")
	require.NoError(t, os.Mkdir(path, 0755))

	got := NewStore(path, nil).Load()
	assert.True(t, Epoch.Equal(got))
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".arath.timestamp")
	store := NewStore(path, nil)
	ts := time.Date(2024, 6, 1, 8, 30, 15, 500, time.UTC)

	require.NoError(t, store.Save(ts))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T08:30:15.0000005Z", string(data))
	assert.True(t, ts.Equal(store.Load()))
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".arath.timestamp")
	require.NoError(t, os.WriteFile(path, []byte("2020-01-01T00:00:00Z"), 0644))

	store := NewStore(path, nil)
	require.NoError(t, store.Save(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2021-01-01T00:00:00Z", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
	}
}

func TestSaveFailsWhenDirectoryIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	store := NewStore(filepath.Join(blocker, ".arath.timestamp"), nil)
	assert.Error(t, store.Save(time.Now()))
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".arath.timestamp")
	store := NewStore(path, nil)
	require.NoError(t, store.Save(time.Now()))

	require.NoError(t, store.Clear())
	assert.NoFileExists(t, path)

	// Clearing twice is fine.
	require.NoError(t, store.Clear())
	assert.True(t, Epoch.Equal(store.Load()))
}

func TestAcquireExcludesSecondStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".arath.timestamp")
	first := NewStore(path, nil)
	second := NewStore(path, nil)

	require.NoError(t, first.Acquire())
	defer first.Release()

	err := second.Acquire()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)

	// Save while holding the run lock must not deadlock.
	require.NoError(t, first.Save(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestTxnCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".arath.timestamp")
	store := NewStore(path, nil)
	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	txn := store.Begin(started)
	assert.Equal(t, started, txn.Started())
	assert.False(t, txn.Committed())
	assert.NoFileExists(t, path, "Begin must not write")

	require.NoError(t, txn.Commit())
	assert.True(t, txn.Committed())
	assert.True(t, started.Equal(store.Load()))

	assert.Error(t, txn.Commit(), "second commit")
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "2022-13-01T00:00:00", "not a date", "2022-01", "2022-01-01T00", "2022-01-01T00:00:00+2"} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseNaiveUsesLocalZone(t *testing.T) {
	saved := time.Local
	time.Local = time.FixedZone("CEST", 2*60*60)
	defer func() { time.Local = saved }()

	got, err := Parse("2024-06-01T12:00:00.123456")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T10:00:00.123456Z", Format(got))

	zoned, err := Parse("2024-06-01T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T12:00:00Z", Format(zoned), "explicit offsets ignore the local zone")
}

func strPtr(s string) *string {
	return &s
}
