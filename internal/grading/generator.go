package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-n-ai/mathboard/internal/ai"
	"github.com/p-n-ai/mathboard/internal/revision"
	"github.com/p-n-ai/mathboard/internal/rubric"
)

// RubricCreator stores the first version of a rubric.
type RubricCreator interface {
	Create(ctx context.Context, assignmentID string, r *rubric.Rubric) (revision.Version, error)
}

// Generator drafts version 1 of an assignment's rubric with the LLM.
type Generator struct {
	ai      ai.Completer
	rubrics RubricCreator
	model   string
}

// NewGenerator creates a rubric generator. An empty model lets the provider pick.
func NewGenerator(completer ai.Completer, rubrics RubricCreator, model string) *Generator {
	return &Generator{ai: completer, rubrics: rubrics, model: model}
}

// Generate asks the LLM for a rubric covering questions and stores it as version 1.
func (g *Generator) Generate(ctx context.Context, assignmentID string, questions []string, notes string) (revision.Version, error) {
	cleaned := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	if len(cleaned) == 0 {
		return revision.Version{}, ErrNoQuestions
	}

	resp, err := g.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: rubricSystemPrompt},
			{Role: "user", Content: buildRubricPrompt(cleaned, notes)},
		},
		Model:    g.model,
		Task:     ai.TaskRubric,
		JSONMode: true,
	})
	if err != nil {
		return revision.Version{}, fmt.Errorf("generate rubric: %w", err)
	}

	r, err := rubric.Decode([]byte(ai.ExtractJSON(resp.Content)))
	if err != nil {
		slog.Warn("model returned an unusable rubric",
			"assignment_id", assignmentID,
			"model", resp.Model,
			"error", err,
		)
		return revision.Version{}, fmt.Errorf("%w: %v", ErrInvalidModelOutput, err)
	}
	if len(r.Questions) != len(cleaned) {
		slog.Warn("generated rubric question count differs from assignment",
			"assignment_id", assignmentID,
			"questions", len(cleaned),
			"rubric_questions", len(r.Questions),
		)
	}

	v, err := g.rubrics.Create(ctx, assignmentID, r)
	if err != nil {
		if errors.Is(err, revision.ErrVersionConflict) {
			return revision.Version{}, err
		}
		return revision.Version{}, fmt.Errorf("store generated rubric: %w", err)
	}

	slog.Info("rubric generated",
		"assignment_id", assignmentID,
		"questions", len(r.Questions),
		"total_points", r.TotalPoints(),
		"tokens", resp.TotalTokens(),
	)
	return v, nil
}
