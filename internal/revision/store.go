// Package revision stores rubric versions and turns teacher edits into new
// versions. Versions are append-only: an edit never mutates a stored version,
// it writes the next one together with a change-log entry.
package revision

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/p-n-ai/mathboard/internal/rubric"
)

var (
	// ErrNotFound is returned when an assignment has no rubric or the requested version does not exist.
	ErrNotFound = errors.New("rubric version not found")
	// ErrVersionConflict is returned when the version being written already exists.
	ErrVersionConflict = errors.New("rubric version already exists")
)

// Version is one immutable rubric snapshot.
type Version struct {
	AssignmentID string        `json:"assignment_id"`
	Version      int           `json:"version"`
	Rubric       rubric.Rubric `json:"rubric_json"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Change is a change-log entry written for every saved edit.
type Change struct {
	AssignmentID     string    `json:"assignment_id"`
	OldVersion       int       `json:"old_version"`
	NewVersion       int       `json:"new_version"`
	TriggeredRegrade bool      `json:"triggered_regrade"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store persists rubric versions and the change log.
type Store interface {
	// Create writes version 1 for an assignment.
	Create(ctx context.Context, assignmentID string, r rubric.Rubric) (Version, error)
	// Append writes version change.NewVersion and the change entry atomically.
	Append(ctx context.Context, r rubric.Rubric, change Change) (Version, error)
	Latest(ctx context.Context, assignmentID string) (Version, error)
	Get(ctx context.Context, assignmentID string, version int) (Version, error)
	// Versions lists versions newest first.
	Versions(ctx context.Context, assignmentID string) ([]Version, error)
	// Changes lists change-log entries oldest first.
	Changes(ctx context.Context, assignmentID string) ([]Change, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	versions map[string][]Version // assignment -> versions, ascending
	changes  map[string][]Change
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		versions: make(map[string][]Version),
		changes:  make(map[string][]Change),
	}
}

func (s *MemoryStore) Create(_ context.Context, assignmentID string, r rubric.Rubric) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.versions[assignmentID]) > 0 {
		return Version{}, ErrVersionConflict
	}
	v := Version{
		AssignmentID: assignmentID,
		Version:      1,
		Rubric:       *r.Clone(),
		CreatedAt:    time.Now(),
	}
	s.versions[assignmentID] = append(s.versions[assignmentID], v)
	return v, nil
}

func (s *MemoryStore) Append(_ context.Context, r rubric.Rubric, change Change) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.versions[change.AssignmentID] {
		if existing.Version == change.NewVersion {
			return Version{}, ErrVersionConflict
		}
	}

	now := time.Now()
	if change.CreatedAt.IsZero() {
		change.CreatedAt = now
	}
	v := Version{
		AssignmentID: change.AssignmentID,
		Version:      change.NewVersion,
		Rubric:       *r.Clone(),
		CreatedAt:    now,
	}

	versions := append(s.versions[change.AssignmentID], v)
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	s.versions[change.AssignmentID] = versions
	s.changes[change.AssignmentID] = append(s.changes[change.AssignmentID], change)
	return v, nil
}

func (s *MemoryStore) Latest(_ context.Context, assignmentID string) (Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[assignmentID]
	if len(versions) == 0 {
		return Version{}, ErrNotFound
	}
	return cloneVersion(versions[len(versions)-1]), nil
}

func (s *MemoryStore) Get(_ context.Context, assignmentID string, version int) (Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[assignmentID] {
		if v.Version == version {
			return cloneVersion(v), nil
		}
	}
	return Version{}, ErrNotFound
}

func (s *MemoryStore) Versions(_ context.Context, assignmentID string) ([]Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[assignmentID]
	out := make([]Version, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		out = append(out, cloneVersion(versions[i]))
	}
	return out, nil
}

func (s *MemoryStore) Changes(_ context.Context, assignmentID string) ([]Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Change{}, s.changes[assignmentID]...), nil
}

func cloneVersion(v Version) Version {
	v.Rubric = *v.Rubric.Clone()
	return v
}
