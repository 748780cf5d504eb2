package progress_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/p-n-ai/mathboard/internal/classroom"
	"github.com/p-n-ai/mathboard/internal/grading"
	"github.com/p-n-ai/mathboard/internal/progress"
)

func TestBucket(t *testing.T) {
	tests := []struct {
		score float64
		max   int
		want  string
	}{
		{0, 0, progress.BucketGrey},
		{3, 0, progress.BucketGrey},
		{4, 5, progress.BucketGreen},
		{5, 5, progress.BucketGreen},
		{3, 5, progress.BucketYellow},
		{3.9, 5, progress.BucketYellow},
		{2.9, 5, progress.BucketRed},
		{0, 5, progress.BucketRed},
	}
	for _, tt := range tests {
		if got := progress.Bucket(tt.score, tt.max); got != tt.want {
			t.Errorf("Bucket(%v, %d) = %q, want %q", tt.score, tt.max, got, tt.want)
		}
	}
}

func TestBuild(t *testing.T) {
	subs := []classroom.Submission{
		{ID: "s1", StudentID: "u1", StudentName: "Ada", Completed: true, Work: map[string]json.RawMessage{
			"Q1": json.RawMessage(`"x=4"`),
			"Q2": json.RawMessage(`"5"`),
		}},
		{ID: "s2", StudentID: "u2"},
		{ID: "s3", StudentID: "u3", StudentName: "Cy"},
	}
	grades := []grading.QuestionGrade{
		{SubmissionID: "s1", QuestionIndex: 1, TotalPoints: 1, MaxPoints: 2, Feedback: "check"},
		{SubmissionID: "s1", QuestionIndex: 0, TotalPoints: 3, MaxPoints: 3},
		{SubmissionID: "s3", QuestionIndex: 0, TotalPoints: 0, MaxPoints: 0},
		{SubmissionID: "other", QuestionIndex: 0, TotalPoints: 9, MaxPoints: 9},
	}

	rows := progress.Build(subs, grades)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	ada := rows[0]
	if len(ada.Questions) != 2 || ada.Questions[0].QuestionIndex != 0 {
		t.Fatalf("questions not sorted by index: %+v", ada.Questions)
	}
	if ada.Questions[0].Bucket != progress.BucketGreen || ada.Questions[1].Bucket != progress.BucketRed {
		t.Errorf("buckets = %s, %s", ada.Questions[0].Bucket, ada.Questions[1].Bucket)
	}
	if string(ada.Questions[1].Work) != `"5"` {
		t.Errorf("work = %s, want the Q2 work", ada.Questions[1].Work)
	}
	if ada.TotalScore == nil || *ada.TotalScore != 4 || *ada.MaxTotal != 5 {
		t.Errorf("totals = %v/%v, want 4/5", ada.TotalScore, ada.MaxTotal)
	}

	if rows[1].StudentName != "Unknown" || rows[1].TotalScore != nil || len(rows[1].Questions) != 0 {
		t.Errorf("ungraded row = %+v", rows[1])
	}
	if rows[2].TotalScore != nil || rows[2].MaxTotal != nil {
		t.Error("totals should be null when the max is 0")
	}
	if rows[2].Questions[0].Bucket != progress.BucketGrey {
		t.Errorf("bucket = %s, want grey", rows[2].Questions[0].Bucket)
	}

	data, _ := json.Marshal(rows[2])
	var decoded map[string]any
	_ = json.Unmarshal(data, &decoded)
	if v, ok := decoded["total_score"]; !ok || v != nil {
		t.Errorf("total_score = %v, want explicit null", v)
	}
}

func TestService_Report(t *testing.T) {
	ctx := context.Background()
	rooms := classroom.NewMemoryStore()
	grades := grading.NewMemoryGradeStore()
	a, _ := rooms.CreateAssignment(ctx, classroom.Assignment{Title: "Warm-up", Questions: []string{"a", "b", "c"}})
	sub, _ := rooms.CreateSubmission(ctx, classroom.Submission{AssignmentID: a.ID, StudentName: "Ada"})
	_, _ = grades.Upsert(ctx, grading.QuestionGrade{SubmissionID: sub.ID, QuestionIndex: 0, TotalPoints: 2, MaxPoints: 2})

	report, err := progress.NewService(rooms, grades).Report(ctx, a.ID)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if report.Title != "Warm-up" || report.QuestionCount != 3 || len(report.Progress) != 1 {
		t.Errorf("report = %+v", report)
	}

	if _, err := progress.NewService(rooms, grades).Report(ctx, "missing"); !errors.Is(err, classroom.ErrAssignmentNotFound) {
		t.Errorf("Report(missing) error = %v, want ErrAssignmentNotFound", err)
	}
}
