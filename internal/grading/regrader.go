package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/mathboard/internal/classroom"
	"github.com/p-n-ai/mathboard/internal/revision"
)

// SubmissionLister lists an assignment's submissions.
type SubmissionLister interface {
	ListSubmissions(ctx context.Context, assignmentID string) ([]classroom.Submission, error)
}

// RegradeSummary counts the outcome of one regrade run.
type RegradeSummary struct {
	Graded  int `json:"graded"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Regrader regrades every answered question of an assignment after its rubric changes.
type Regrader struct {
	grader      *Grader
	submissions SubmissionLister
	rubrics     RubricSource
}

// NewRegrader creates a regrader that grades through grader.
func NewRegrader(grader *Grader, submissions SubmissionLister, rubrics RubricSource) *Regrader {
	return &Regrader{grader: grader, submissions: submissions, rubrics: rubrics}
}

// HandleChange is a revision.ChangeHandler. Changes that do not request a
// regrade, or that a newer version has already superseded, are ignored.
func (r *Regrader) HandleChange(ctx context.Context, change revision.Change) error {
	if !change.TriggeredRegrade {
		return nil
	}
	_, err := r.Regrade(ctx, change)
	return err
}

// Regrade grades every submission of the changed assignment against the
// latest rubric. A failed question is logged and counted; the run continues.
func (r *Regrader) Regrade(ctx context.Context, change revision.Change) (RegradeSummary, error) {
	var summary RegradeSummary

	latest, err := r.rubrics.Latest(ctx, change.AssignmentID)
	if err != nil {
		return summary, fmt.Errorf("load rubric: %w", err)
	}
	if latest.Version > change.NewVersion {
		slog.Info("skipping superseded rubric change",
			"assignment_id", change.AssignmentID,
			"change_version", change.NewVersion,
			"latest_version", latest.Version,
		)
		return summary, nil
	}

	subs, err := r.submissions.ListSubmissions(ctx, change.AssignmentID)
	if err != nil {
		return summary, fmt.Errorf("list submissions: %w", err)
	}

	for _, sub := range subs {
		for i := range latest.Rubric.Questions {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			_, err := r.grader.grade(ctx, sub, latest, i)
			switch {
			case err == nil:
				summary.Graded++
			case errors.Is(err, ErrNoWork):
				summary.Skipped++
			default:
				summary.Failed++
				slog.Error("regrade failed",
					"assignment_id", change.AssignmentID,
					"submission_id", sub.ID,
					"question_index", i,
					"error", err,
				)
			}
		}
	}

	slog.Info("assignment regraded",
		"assignment_id", change.AssignmentID,
		"rubric_version", latest.Version,
		"graded", summary.Graded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}
