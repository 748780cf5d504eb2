// Package progress summarizes grades per student for the teacher dashboard
// and spreadsheet export.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/p-n-ai/mathboard/internal/classroom"
	"github.com/p-n-ai/mathboard/internal/grading"
)

// Bucket colors shown on the dashboard.
const (
	BucketGrey   = "grey"
	BucketGreen  = "green"
	BucketYellow = "yellow"
	BucketRed    = "red"
)

// Bucket classifies a score: grey when nothing is gradable, green from 80%,
// yellow from 60%, red below.
func Bucket(score float64, maxPoints int) string {
	if maxPoints == 0 {
		return BucketGrey
	}
	pct := score / float64(maxPoints)
	switch {
	case pct >= 0.8:
		return BucketGreen
	case pct >= 0.6:
		return BucketYellow
	default:
		return BucketRed
	}
}

// QuestionProgress is one graded question.
type QuestionProgress struct {
	QuestionIndex int                 `json:"question_index"`
	Score         float64             `json:"score"`
	Max           int                 `json:"max"`
	Bucket        string              `json:"bucket"`
	Goals         []grading.GoalScore `json:"goals"`
	Feedback      string              `json:"feedback"`
	RubricVersion int                 `json:"rubric_version"`
	Work          json.RawMessage     `json:"work,omitempty"`
}

// StudentProgress is one submission's row. TotalScore and MaxTotal are nil
// until at least one question with points has been graded.
type StudentProgress struct {
	SubmissionID string             `json:"submission_id"`
	StudentID    string             `json:"student_id"`
	StudentName  string             `json:"student_name"`
	Completed    bool               `json:"completed"`
	Questions    []QuestionProgress `json:"questions"`
	TotalScore   *float64           `json:"total_score"`
	MaxTotal     *int               `json:"max_total"`
}

// Report is the progress of every student on an assignment.
type Report struct {
	AssignmentID  string            `json:"assignment_id"`
	Title         string            `json:"title"`
	QuestionCount int               `json:"question_count"`
	Progress      []StudentProgress `json:"progress"`
}

// Build joins submissions with their grades. Questions are sorted by index.
func Build(submissions []classroom.Submission, grades []grading.QuestionGrade) []StudentProgress {
	bySubmission := make(map[string][]grading.QuestionGrade)
	for _, g := range grades {
		bySubmission[g.SubmissionID] = append(bySubmission[g.SubmissionID], g)
	}

	out := make([]StudentProgress, 0, len(submissions))
	for _, sub := range submissions {
		gs := bySubmission[sub.ID]
		sort.Slice(gs, func(i, j int) bool { return gs[i].QuestionIndex < gs[j].QuestionIndex })

		name := sub.StudentName
		if name == "" {
			name = "Unknown"
		}
		row := StudentProgress{
			SubmissionID: sub.ID,
			StudentID:    sub.StudentID,
			StudentName:  name,
			Completed:    sub.Completed,
			Questions:    make([]QuestionProgress, 0, len(gs)),
		}

		var totalScore float64
		var totalMax int
		for _, g := range gs {
			work, _ := sub.WorkFor(g.QuestionIndex)
			row.Questions = append(row.Questions, QuestionProgress{
				QuestionIndex: g.QuestionIndex,
				Score:         g.TotalPoints,
				Max:           g.MaxPoints,
				Bucket:        Bucket(g.TotalPoints, g.MaxPoints),
				Goals:         g.Goals,
				Feedback:      g.Feedback,
				RubricVersion: g.RubricVersion,
				Work:          work,
			})
			totalScore += g.TotalPoints
			totalMax += g.MaxPoints
		}
		if totalMax != 0 {
			row.TotalScore = &totalScore
			row.MaxTotal = &totalMax
		}
		out = append(out, row)
	}
	return out
}

// AssignmentSource loads assignments and their submissions.
type AssignmentSource interface {
	GetAssignment(ctx context.Context, id string) (classroom.Assignment, error)
	ListSubmissions(ctx context.Context, assignmentID string) ([]classroom.Submission, error)
}

// GradeLister loads grades for a set of submissions.
type GradeLister interface {
	ListForSubmissions(ctx context.Context, submissionIDs []string) ([]grading.QuestionGrade, error)
}

// Service builds reports from the stores.
type Service struct {
	assignments AssignmentSource
	grades      GradeLister
}

// NewService creates a progress service.
func NewService(assignments AssignmentSource, grades GradeLister) *Service {
	return &Service{assignments: assignments, grades: grades}
}

// Report returns the progress of every submission to an assignment.
func (s *Service) Report(ctx context.Context, assignmentID string) (Report, error) {
	a, err := s.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Report{}, err
	}
	subs, err := s.assignments.ListSubmissions(ctx, assignmentID)
	if err != nil {
		return Report{}, fmt.Errorf("list submissions: %w", err)
	}
	ids := make([]string, len(subs))
	for i, sub := range subs {
		ids[i] = sub.ID
	}
	grades, err := s.grades.ListForSubmissions(ctx, ids)
	if err != nil {
		return Report{}, fmt.Errorf("list grades: %w", err)
	}
	return Report{
		AssignmentID:  a.ID,
		Title:         a.Title,
		QuestionCount: len(a.Questions),
		Progress:      Build(subs, grades),
	}, nil
}
