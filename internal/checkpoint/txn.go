package checkpoint

import (
	"fmt"
	"time"
)

// Txn holds the start time of a run until the run is known to have succeeded.
// Nothing is written unless Commit is called.
type Txn struct {
	store     *Store
	started   time.Time
	committed bool
}

// Begin starts a transaction whose committed value will be now. now must be
// captured before anything is fetched so events that happen during the run
// are seen again next time.
func (s *Store) Begin(now time.Time) *Txn {
	return &Txn{store: s, started: now}
}

// Started returns the timestamp Commit will persist.
func (t *Txn) Started() time.Time {
	return t.started
}

// Committed reports whether Commit succeeded.
func (t *Txn) Committed() bool {
	return t.committed
}

// Commit persists the run start time. A second call is an error.
func (t *Txn) Commit() error {
	if t.committed {
		return fmt.Errorf("checkpoint %s already committed", Format(t.started))
	}
	if err := t.store.Save(t.started); err != nil {
		return err
	}
	t.committed = true
	return nil
}
