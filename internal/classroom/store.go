package classroom

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	assignments map[string]Assignment
	submissions map[string]Submission
	order       []string // submission ids in creation order
	mu          sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assignments: make(map[string]Assignment),
		submissions: make(map[string]Submission),
	}
}

func (s *MemoryStore) CreateAssignment(_ context.Context, a Assignment) (Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Questions == nil {
		a.Questions = []string{}
	}
	a.Questions = append([]string{}, a.Questions...)
	a.CreatedAt = time.Now()
	s.assignments[a.ID] = a
	return a, nil
}

func (s *MemoryStore) GetAssignment(_ context.Context, id string) (Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[id]
	if !ok {
		return Assignment{}, ErrAssignmentNotFound
	}
	a.Questions = append([]string{}, a.Questions...)
	return a, nil
}

func (s *MemoryStore) CreateSubmission(_ context.Context, sub Submission) (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[sub.AssignmentID]; !ok {
		return Submission{}, ErrAssignmentNotFound
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now()
	sub.Work = cloneWork(sub.Work)
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if _, exists := s.submissions[sub.ID]; !exists {
		s.order = append(s.order, sub.ID)
	}
	s.submissions[sub.ID] = sub
	return cloneSubmission(sub), nil
}

func (s *MemoryStore) GetSubmission(_ context.Context, id string) (Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[id]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	return cloneSubmission(sub), nil
}

func (s *MemoryStore) UpdateWork(_ context.Context, id string, u WorkUpdate) (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	sub.Work = cloneWork(u.Work)
	if u.CurrentQuestion != nil {
		sub.CurrentQuestion = *u.CurrentQuestion
	}
	if u.Completed != nil {
		sub.Completed = *u.Completed
	}
	sub.UpdatedAt = time.Now()
	s.submissions[id] = sub
	return cloneSubmission(sub), nil
}

func (s *MemoryStore) ListSubmissions(_ context.Context, assignmentID string) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := []Submission{}
	for _, id := range s.order {
		if sub := s.submissions[id]; sub.AssignmentID == assignmentID {
			subs = append(subs, cloneSubmission(sub))
		}
	}
	return subs, nil
}

func cloneWork(work map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(work))
	for k, v := range work {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func cloneSubmission(sub Submission) Submission {
	sub.Work = cloneWork(sub.Work)
	return sub
}
