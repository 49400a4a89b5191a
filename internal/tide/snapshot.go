package tide

import (
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"sync"
)

// Snapshot is the single slot through which the pipeline hands its latest
// good set to readers on other goroutines. Sets are stored as private copies
// and replaced wholesale, so a reader never sees a partially written set.
type Snapshot struct {
	mu      sync.Mutex
	set     *models.ExtremaSet
	version uint64
	dirty   bool
}

func (s *Snapshot) publish(set *models.ExtremaSet) uint64 {
	clone := set.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.set = clone
	s.version++
	s.dirty = true
	return s.version
}

// Latest returns the current set and its version. Version 0 means nothing has
// been published. The returned set must not be modified.
func (s *Snapshot) Latest() (*models.ExtremaSet, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set, s.version
}

// TakeDirtyFlag reports whether a new set was published since the last call,
// and clears the flag.
func (s *Snapshot) TakeDirtyFlag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirty := s.dirty
	s.dirty = false
	return dirty
}
