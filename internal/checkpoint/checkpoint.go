// Package checkpoint persists the start time of the last fully successful
// report run as a single ISO-8601 timestamp in a plain-text file.
//
// The file is the only state arath keeps between runs. A missing or corrupt
// file is not an error: Load falls back to Epoch and everything recorded so far
// is reported again.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultPath is the checkpoint file used when none is configured.
const DefaultPath = ".arath.timestamp"

// Epoch is the "beginning of time" returned when no usable checkpoint exists.
var Epoch = time.Unix(0, 0).UTC()

// zonedLayouts carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04-0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04-0700",
}

// naiveLayouts have no offset and are read in local time, the zone a naive
// ISO-8601 timestamp is written in.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Logger receives checkpoint diagnostics.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
}

// Store reads and writes one checkpoint file.
type Store struct {
	path   string
	logger Logger
	lock   *fileLock
}

// NewStore creates a Store for path. An empty path uses DefaultPath.
// The logger parameter is optional and can be nil.
func NewStore(path string, logger Logger) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{
		path:   path,
		logger: logger,
		lock:   newFileLock(path + ".lock"),
	}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored checkpoint, or Epoch when the file is missing,
// unreadable or malformed. The failure is logged, never returned.
func (s *Store) Load() time.Time {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.warn(fmt.Sprintf("no checkpoint at %s, starting from %s", s.path, Format(Epoch)))
		} else {
			s.warn(fmt.Sprintf("failed to read checkpoint %s: %v; starting from %s", s.path, err, Format(Epoch)))
		}
		return Epoch
	}

	ts, err := Parse(string(data))
	if err != nil {
		s.warn(fmt.Sprintf("ignoring checkpoint %s: %v; starting from %s", s.path, err, Format(Epoch)))
		return Epoch
	}
	s.debug(fmt.Sprintf("loaded checkpoint %s from %s", Format(ts), s.path))
	return ts
}

// Save replaces the checkpoint with ts. The write is atomic; readers see
// either the old or the new value.
func (s *Store) Save(ts time.Time) error {
	if !s.lock.held() {
		if err := s.lock.lock(); err != nil {
			return err
		}
		defer s.lock.unlock()
	}

	if err := writeAtomic(s.path, []byte(Format(ts))); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	s.debug(fmt.Sprintf("saved checkpoint %s to %s", Format(ts), s.path))
	return nil
}

// Clear removes the checkpoint so the next run starts from Epoch.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	return nil
}

// Acquire takes the run lock without blocking. It returns ErrLocked when
// another process holds it. Save calls made while the lock is held reuse it.
func (s *Store) Acquire() error {
	ok, err := s.lock.tryLock()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, s.lock.path)
	}
	return nil
}

// Release drops the run lock taken by Acquire.
func (s *Store) Release() error {
	if !s.lock.held() {
		return nil
	}
	return s.lock.unlock()
}

// Parse reads a checkpoint value. Surrounding whitespace is ignored.
func Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range zonedLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

// Format renders ts in the canonical on-disk form (RFC 3339, UTC).
func Format(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func (s *Store) warn(message string) {
	if s.logger != nil {
		s.logger.LogWarn(message)
	}
}

func (s *Store) debug(message string) {
	if s.logger != nil {
		s.logger.LogDebug(message)
	}
}
