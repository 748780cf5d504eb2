package grading

import (
	"context"
	"sort"
	"sync"
)

// GradeStore persists question grades. Upsert replaces any earlier grade for
// the same (SubmissionID, QuestionIndex).
type GradeStore interface {
	Upsert(ctx context.Context, g QuestionGrade) (QuestionGrade, error)
	Get(ctx context.Context, submissionID string, questionIndex int) (QuestionGrade, error)
	// ListForSubmissions returns grades ordered by submission, then question index.
	ListForSubmissions(ctx context.Context, submissionIDs []string) ([]QuestionGrade, error)
}

type gradeKey struct {
	submissionID  string
	questionIndex int
}

// MemoryGradeStore is an in-memory GradeStore.
type MemoryGradeStore struct {
	grades map[gradeKey]QuestionGrade
	mu     sync.RWMutex
}

// NewMemoryGradeStore creates an empty in-memory grade store.
func NewMemoryGradeStore() *MemoryGradeStore {
	return &MemoryGradeStore{grades: make(map[gradeKey]QuestionGrade)}
}

func (s *MemoryGradeStore) Upsert(_ context.Context, g QuestionGrade) (QuestionGrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.Goals = append([]GoalScore{}, g.Goals...)
	s.grades[gradeKey{g.SubmissionID, g.QuestionIndex}] = g
	return g, nil
}

func (s *MemoryGradeStore) Get(_ context.Context, submissionID string, questionIndex int) (QuestionGrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grades[gradeKey{submissionID, questionIndex}]
	if !ok {
		return QuestionGrade{}, ErrGradeNotFound
	}
	g.Goals = append([]GoalScore{}, g.Goals...)
	return g, nil
}

func (s *MemoryGradeStore) ListForSubmissions(_ context.Context, submissionIDs []string) ([]QuestionGrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(submissionIDs))
	for _, id := range submissionIDs {
		want[id] = true
	}
	out := []QuestionGrade{}
	for k, g := range s.grades {
		if want[k.submissionID] {
			g.Goals = append([]GoalScore{}, g.Goals...)
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmissionID != out[j].SubmissionID {
			return out[i].SubmissionID < out[j].SubmissionID
		}
		return out[i].QuestionIndex < out[j].QuestionIndex
	})
	return out, nil
}
