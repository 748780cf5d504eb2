package grading_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/p-n-ai/mathboard/internal/ai"
	"github.com/p-n-ai/mathboard/internal/classroom"
	"github.com/p-n-ai/mathboard/internal/grading"
	"github.com/p-n-ai/mathboard/internal/revision"
	"github.com/p-n-ai/mathboard/internal/rubric"
)

const generatedRubric = "```json\n" + `{
  "questions": [
    {
      "index": 0,
      "prompt": "Solve for x: 2x=8",
      "totalPoints": 3,
      "goals": [
        {"goal": "Isolate variable", "maxPoints": 2, "fullCreditCriteria": "Divides both sides", "partialCreditCriteria": "Arithmetic slip", "noCreditCriteria": "No attempt"},
        {"goal": "Show work", "maxPoints": 1, "fullCreditCriteria": "Steps shown", "partialCreditCriteria": null, "noCreditCriteria": "Answer only"}
      ],
      "notesForTeacher": "Accept x=4 in any form"
    },
    {
      "index": 1,
      "prompt": "What is 2+3?",
      "goals": [
        {"goal": "Addition", "maxPoints": 2, "fullCreditCriteria": "5", "partialCreditCriteria": "", "noCreditCriteria": "Other"}
      ]
    }
  ]
}` + "\n```"

type fixture struct {
	mock        *ai.MockProvider
	revisions   *revision.Service
	classroom   *classroom.MemoryStore
	grades      *grading.MemoryGradeStore
	grader      *grading.Grader
	assignment  classroom.Assignment
	submissions []classroom.Submission
}

func newFixture(t *testing.T, reply string) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		mock:      ai.NewMockProvider(reply),
		revisions: revision.NewService(revision.ServiceConfig{}),
		classroom: classroom.NewMemoryStore(),
		grades:    grading.NewMemoryGradeStore(),
	}
	f.grader = grading.NewGrader(f.mock, f.classroom, f.revisions, f.grades, "")

	a, err := f.classroom.CreateAssignment(ctx, classroom.Assignment{
		Title:     "Warm-up",
		Questions: []string{"Solve for x: 2x=8", "What is 2+3?"},
	})
	if err != nil {
		t.Fatal(err)
	}
	f.assignment = a
	return f
}

func (f *fixture) seedRubric(t *testing.T) {
	t.Helper()
	r, err := rubric.Decode([]byte(ai.ExtractJSON(generatedRubric)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.revisions.Create(context.Background(), f.assignment.ID, r); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) addSubmission(t *testing.T, name string, work map[string]string) classroom.Submission {
	t.Helper()
	raw := map[string]json.RawMessage{}
	for k, v := range work {
		b, _ := json.Marshal(v)
		raw[k] = b
	}
	sub, err := f.classroom.CreateSubmission(context.Background(), classroom.Submission{
		AssignmentID: f.assignment.ID,
		StudentName:  name,
		Work:         raw,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.submissions = append(f.submissions, sub)
	return sub
}
