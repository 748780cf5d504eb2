package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/mathboard/internal/ai"
	"github.com/p-n-ai/mathboard/internal/classroom"
	"github.com/p-n-ai/mathboard/internal/revision"
	"github.com/p-n-ai/mathboard/internal/rubric"
)

// resultSchema is what the grading prompt asks the model to return.
const resultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["goals"],
  "properties": {
    "goals": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["points"],
        "properties": {
          "goal": {"type": "string"},
          "points": {"type": "number"},
          "maxPoints": {"type": "number"},
          "explanation": {"type": ["string", "null"]}
        }
      }
    },
    "totalPoints": {"type": "number"},
    "maxPoints": {"type": "number"},
    "overallFeedback": {"type": ["string", "null"]}
  }
}`

var (
	resultSchemaOnce sync.Once
	resultSchemaVal  *gojsonschema.Schema
	resultSchemaErr  error
)

type modelResult struct {
	Goals []struct {
		Goal        string  `json:"goal"`
		Points      float64 `json:"points"`
		Explanation string  `json:"explanation"`
	} `json:"goals"`
	TotalPoints     float64 `json:"totalPoints"`
	OverallFeedback string  `json:"overallFeedback"`
}

// RubricSource returns the newest rubric version of an assignment.
type RubricSource interface {
	Latest(ctx context.Context, assignmentID string) (revision.Version, error)
}

// SubmissionSource loads submissions.
type SubmissionSource interface {
	GetSubmission(ctx context.Context, id string) (classroom.Submission, error)
}

// Grader scores one question of a submission against the latest rubric.
type Grader struct {
	ai          ai.Completer
	submissions SubmissionSource
	rubrics     RubricSource
	grades      GradeStore
	model       string
}

// NewGrader creates a grader. An empty model lets the provider pick.
func NewGrader(completer ai.Completer, submissions SubmissionSource, rubrics RubricSource, grades GradeStore, model string) *Grader {
	return &Grader{
		ai:          completer,
		submissions: submissions,
		rubrics:     rubrics,
		grades:      grades,
		model:       model,
	}
}

// GradeQuestion grades the student's work for questionIndex and upserts the result.
func (g *Grader) GradeQuestion(ctx context.Context, submissionID string, questionIndex int) (QuestionGrade, error) {
	sub, err := g.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, classroom.ErrSubmissionNotFound) {
			return QuestionGrade{}, ErrSubmissionNotFound
		}
		return QuestionGrade{}, fmt.Errorf("load submission: %w", err)
	}

	latest, err := g.rubrics.Latest(ctx, sub.AssignmentID)
	if err != nil {
		if errors.Is(err, revision.ErrNotFound) {
			return QuestionGrade{}, ErrRubricNotFound
		}
		return QuestionGrade{}, fmt.Errorf("load rubric: %w", err)
	}
	return g.grade(ctx, sub, latest, questionIndex)
}

func (g *Grader) grade(ctx context.Context, sub classroom.Submission, latest revision.Version, questionIndex int) (QuestionGrade, error) {
	q, ok := latest.Rubric.Question(questionIndex)
	if !ok {
		return QuestionGrade{}, ErrQuestionNotFound
	}
	work, ok := sub.WorkFor(questionIndex)
	if !ok {
		return QuestionGrade{}, ErrNoWork
	}

	prompt, err := buildGradingPrompt(q, work)
	if err != nil {
		return QuestionGrade{}, err
	}
	resp, err := g.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: gradingSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Model:    g.model,
		Task:     ai.TaskGrading,
		JSONMode: true,
	})
	if err != nil {
		return QuestionGrade{}, fmt.Errorf("grade question: %w", err)
	}

	result, err := decodeResult(ai.ExtractJSON(resp.Content))
	if err != nil {
		slog.Warn("model returned an unusable grade",
			"submission_id", sub.ID,
			"question_index", questionIndex,
			"model", resp.Model,
			"error", err,
		)
		return QuestionGrade{}, err
	}

	grade := score(q, result)
	grade.SubmissionID = sub.ID
	grade.QuestionIndex = questionIndex
	grade.RubricVersion = latest.Version
	grade.GradedAt = time.Now()

	stored, err := g.grades.Upsert(ctx, grade)
	if err != nil {
		return QuestionGrade{}, fmt.Errorf("store grade: %w", err)
	}

	slog.Info("question graded",
		"submission_id", sub.ID,
		"question_index", questionIndex,
		"rubric_version", latest.Version,
		"score", stored.TotalPoints,
		"max", stored.MaxPoints,
	)
	return stored, nil
}

func decodeResult(content string) (modelResult, error) {
	resultSchemaOnce.Do(func() {
		resultSchemaVal, resultSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(resultSchema))
	})
	if resultSchemaErr != nil {
		return modelResult{}, fmt.Errorf("compile grade schema: %w", resultSchemaErr)
	}

	res, err := resultSchemaVal.Validate(gojsonschema.NewStringLoader(content))
	if err != nil {
		return modelResult{}, fmt.Errorf("%w: %v", ErrInvalidModelOutput, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return modelResult{}, fmt.Errorf("%w: %s", ErrInvalidModelOutput, strings.Join(msgs, "; "))
	}

	var out modelResult
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return modelResult{}, fmt.Errorf("%w: %v", ErrInvalidModelOutput, err)
	}
	return out, nil
}

// score maps the model's goal scores onto the rubric's goals. Goals are
// matched by name, then by position. Points are clamped to [0, maxPoints] and
// totals are recomputed from the rubric, never taken from the model.
func score(q rubric.Question, res modelResult) QuestionGrade {
	if len(q.Goals) == 0 {
		total := clamp(res.TotalPoints, q.TotalPoints)
		return QuestionGrade{
			Goals:       []GoalScore{},
			TotalPoints: total,
			MaxPoints:   q.TotalPoints,
			Feedback:    res.OverallFeedback,
		}
	}

	byName := make(map[string]int, len(res.Goals))
	for i, mg := range res.Goals {
		key := goalKey(mg.Goal)
		if _, dup := byName[key]; !dup && key != "" {
			byName[key] = i
		}
	}

	grade := QuestionGrade{
		Goals:    make([]GoalScore, 0, len(q.Goals)),
		Feedback: res.OverallFeedback,
	}
	for i, goal := range q.Goals {
		gs := GoalScore{Goal: goal.Goal, MaxPoints: goal.MaxPoints}
		j, ok := byName[goalKey(goal.Goal)]
		if !ok && i < len(res.Goals) {
			j, ok = i, true
		}
		if ok {
			gs.Points = clamp(res.Goals[j].Points, goal.MaxPoints)
			gs.Explanation = res.Goals[j].Explanation
		}
		grade.Goals = append(grade.Goals, gs)
		grade.TotalPoints += gs.Points
		grade.MaxPoints += goal.MaxPoints
	}
	return grade
}

// goalKey folds case and Unicode normalization form, so "Méthode" typed on
// one keyboard matches the same label pasted from another.
func goalKey(s string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
}

func clamp(points float64, limit int) float64 {
	if points < 0 {
		return 0
	}
	if points > float64(limit) {
		return float64(limit)
	}
	return points
}
