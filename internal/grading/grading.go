// Package grading drafts rubrics and grades student work with an LLM, and
// regrades submissions when a rubric changes.
package grading

import (
	"errors"
	"time"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrRubricNotFound     = errors.New("rubric not found")
	ErrQuestionNotFound   = errors.New("question rubric not found")
	ErrNoWork             = errors.New("no student work for this question")
	ErrNoQuestions        = errors.New("assignment has no questions")
	// ErrInvalidModelOutput wraps replies that are not the JSON we asked for.
	ErrInvalidModelOutput = errors.New("model did not return valid JSON")
	ErrGradeNotFound      = errors.New("grade not found")
)

// GoalScore is the score for one rubric goal.
type GoalScore struct {
	Goal        string  `json:"goal"`
	Points      float64 `json:"points"`
	MaxPoints   int     `json:"maxPoints"`
	Explanation string  `json:"explanation"`
}

// QuestionGrade is the stored grade for one question of one submission.
// There is at most one per (SubmissionID, QuestionIndex).
type QuestionGrade struct {
	SubmissionID  string      `json:"submission_id"`
	QuestionIndex int         `json:"question_index"`
	RubricVersion int         `json:"rubric_version"`
	Goals         []GoalScore `json:"per_goal"`
	TotalPoints   float64     `json:"total_points"`
	MaxPoints     int         `json:"max_points"`
	Feedback      string      `json:"feedback"`
	GradedAt      time.Time   `json:"graded_at"`
}
