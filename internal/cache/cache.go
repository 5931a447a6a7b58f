// Package cache holds the single in-memory snapshot shared by every panel.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/kjstillabower/weathernow/internal/models"
)

// Store holds exactly one snapshot. Writers allocate a cycle number with Begin and
// commit whole snapshots tagged with it; a commit carrying a number that is not newer
// than the stored one is rejected, so the cycle that started last always wins.
// Readers only ever receive deep copies.
type Store struct {
	seq  atomic.Uint64
	mu   sync.RWMutex
	snap models.Snapshot
}

// NewStore creates an empty Store: sequence 0, no data, no error.
func NewStore() *Store {
	return &Store{}
}

// Begin allocates the next cycle number. Numbers are strictly increasing and start at 1.
func (s *Store) Begin() uint64 {
	return s.seq.Add(1)
}

// Commit replaces the stored snapshot with a copy of snap when snap.Seq is newer than the
// stored sequence. It returns the snapshot that is current after the call and whether
// snap was accepted.
func (s *Store) Commit(snap models.Snapshot) (models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Seq <= s.snap.Seq {
		return s.snap.Clone(), false
	}
	s.snap = snap.Clone()
	return s.snap.Clone(), true
}

// Snapshot returns a deep copy of the current snapshot.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Latest returns the most recently allocated cycle number, committed or not.
func (s *Store) Latest() uint64 {
	return s.seq.Load()
}
