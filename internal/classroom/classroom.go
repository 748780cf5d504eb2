// Package classroom holds assignments and the student submissions made against them.
package classroom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Assignment is a teacher-created set of free-response questions.
type Assignment struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Questions   []string  `json:"questions"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Submission is one student's whiteboard work for an assignment. Work is keyed
// by WorkKey and holds whatever the whiteboard widget captured.
type Submission struct {
	ID              string                     `json:"id"`
	AssignmentID    string                     `json:"assignment_id"`
	StudentID       string                     `json:"student_id"`
	StudentName     string                     `json:"student_name"`
	Work            map[string]json.RawMessage `json:"work_json"`
	CurrentQuestion int                        `json:"current_question"`
	Completed       bool                       `json:"completed"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// WorkUpdate replaces a submission's work. CurrentQuestion and Completed are
// only applied when set, so autosaves never reopen a finished submission.
type WorkUpdate struct {
	Work            map[string]json.RawMessage
	CurrentQuestion *int
	Completed       *bool
}

// WorkKey returns the work map key for a 0-based question index.
func WorkKey(questionIndex int) string {
	return fmt.Sprintf("Q%d", questionIndex+1)
}

// WorkFor returns the saved work for a question. Null, empty string, false
// and zero values count as no work.
func (s Submission) WorkFor(questionIndex int) (json.RawMessage, bool) {
	raw, ok := s.Work[WorkKey(questionIndex)]
	if !ok {
		return nil, false
	}
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`, "false", "0":
		return nil, false
	}
	return raw, true
}

// Store persists assignments and submissions.
type Store interface {
	CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	CreateSubmission(ctx context.Context, s Submission) (Submission, error)
	GetSubmission(ctx context.Context, id string) (Submission, error)
	UpdateWork(ctx context.Context, id string, u WorkUpdate) (Submission, error)
	// ListSubmissions returns an assignment's submissions, oldest first.
	ListSubmissions(ctx context.Context, assignmentID string) ([]Submission, error)
}
