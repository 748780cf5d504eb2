package grading_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/mathboard/internal/classroom"
	"github.com/p-n-ai/mathboard/internal/grading"
	"github.com/p-n-ai/mathboard/internal/platform/database/dbtest"
)

func TestPostgresGradeStore_Upsert(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	rooms, _ := classroom.NewPostgresStore(pool)
	a, err := rooms.CreateAssignment(ctx, classroom.Assignment{Title: "A"})
	if err != nil {
		t.Fatal(err)
	}
	sub, err := rooms.CreateSubmission(ctx, classroom.Submission{AssignmentID: a.ID})
	if err != nil {
		t.Fatal(err)
	}

	store, err := grading.NewPostgresGradeStore(pool)
	if err != nil {
		t.Fatal(err)
	}

	first := grading.QuestionGrade{
		SubmissionID:  sub.ID,
		QuestionIndex: 0,
		RubricVersion: 1,
		Goals:         []grading.GoalScore{{Goal: "Addition", Points: 1.5, MaxPoints: 2}},
		TotalPoints:   1.5,
		MaxPoints:     2,
		Feedback:      "close",
	}
	if _, err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	second := first
	second.RubricVersion = 2
	second.TotalPoints = 2
	second.Goals = []grading.GoalScore{{Goal: "Addition", Points: 2, MaxPoints: 2}}
	if _, err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	grades, err := store.ListForSubmissions(ctx, []string{sub.ID})
	if err != nil {
		t.Fatalf("ListForSubmissions() error = %v", err)
	}
	if len(grades) != 1 || grades[0].RubricVersion != 2 || grades[0].TotalPoints != 2 {
		t.Errorf("grades = %+v, want the single replaced grade", grades)
	}
	if grades[0].Goals[0].Points != 2 {
		t.Errorf("per_goal = %+v", grades[0].Goals)
	}

	if _, err := store.Get(ctx, sub.ID, 3); !errors.Is(err, grading.ErrGradeNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrGradeNotFound", err)
	}
	if got, _ := store.ListForSubmissions(ctx, nil); len(got) != 0 {
		t.Errorf("ListForSubmissions(nil) = %+v, want empty", got)
	}
}

func TestNewPostgresGradeStore_NilPool(t *testing.T) {
	if _, err := grading.NewPostgresGradeStore(nil); err == nil {
		t.Fatal("NewPostgresGradeStore(nil) should return error")
	}
}
