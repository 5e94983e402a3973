// Package state holds the published project collection. Readers always see
// one complete snapshot; publication swaps the whole snapshot at once.
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rpggio/cairn/internal/domain/project"
)

// Snapshot is one published collection. It is never mutated after
// publication.
type Snapshot struct {
	Version     uint64
	PublishedAt time.Time
	projects    []project.Project
	index       map[string]int
}

// Projects returns a deep copy of the collection in ledger order.
func (s *Snapshot) Projects() []project.Project {
	if s == nil {
		return []project.Project{}
	}
	out := make([]project.Project, len(s.projects))
	for i, p := range s.projects {
		out[i] = p.Clone()
	}
	return out
}

// Find looks up a project by id and returns a deep copy.
func (s *Snapshot) Find(id string) (project.Project, bool) {
	if s == nil {
		return project.Project{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return project.Project{}, false
	}
	return s.projects[i].Clone(), true
}

// Len returns the number of projects.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.projects)
}

// Reader is the read side of the store.
type Reader interface {
	Current() *Snapshot
	Projects() []project.Project
	Find(id string) (project.Project, bool)
}

// Store publishes snapshots with copy-on-write semantics.
type Store struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes writers
	now     func() time.Time
}

// NewStore returns a store holding an empty version-0 snapshot.
func NewStore() *Store {
	s := &Store{now: time.Now}
	s.current.Store(&Snapshot{index: map[string]int{}})
	return s
}

// Current returns the published snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Projects returns the published projects.
func (s *Store) Projects() []project.Project {
	return s.Current().Projects()
}

// Find looks up a published project.
func (s *Store) Find(id string) (project.Project, bool) {
	return s.Current().Find(id)
}

// Len reports how many projects are published.
func (s *Store) Len() int {
	return s.Current().Len()
}

// Publish replaces the collection if version is newer than the published
// one. The projects are deep-copied; when ids repeat the first occurrence wins.
// It reports whether the snapshot was replaced.
func (s *Store) Publish(version uint64, projects []project.Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if version <= s.current.Load().Version {
		return false
	}

	snap := &Snapshot{
		Version:     version,
		PublishedAt: s.now(),
		projects:    make([]project.Project, 0, len(projects)),
		index:       make(map[string]int, len(projects)),
	}
	for _, p := range projects {
		if _, dup := snap.index[p.ID]; dup {
			continue
		}
		snap.index[p.ID] = len(snap.projects)
		snap.projects = append(snap.projects, p.Clone())
	}
	s.current.Store(snap)
	return true
}
