package rubric_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/p-n-ai/mathboard/internal/rubric"
)

const scenarioText = `1. What is 2+3?
    - Addition (3pts):
      • Full: Correct sum with work shown
      • Partial: Correct sum, no work
      • None: Incorrect or missing
    (Total Points: 3)

2. Solve for x: 2x=8
    - Isolate variable (2pts):
      • Full: Divides both sides correctly
      • Partial: Attempts division with error
      • None: No attempt
`

func sampleRubric() *rubric.Rubric {
	return &rubric.Rubric{Questions: []rubric.Question{
		{
			Index:       0,
			Prompt:      "Factor x^2 + 5x + 6",
			TotalPoints: 4,
			Goals: []rubric.Goal{
				{
					Goal:                  "Identifies factor pair",
					MaxPoints:             2,
					FullCreditCriteria:    "Finds 2 and 3",
					PartialCreditCriteria: "Finds one factor",
					NoCreditCriteria:      "No valid pair",
				},
				{
					Goal:                  "Writes factored form",
					MaxPoints:             2,
					FullCreditCriteria:    "(x+2)(x+3)",
					PartialCreditCriteria: "Sign error",
					NoCreditCriteria:      "Missing",
				},
			},
		},
		{
			Index:       1,
			Prompt:      "Evaluate 3(4 - 1)",
			TotalPoints: 1,
			Goals: []rubric.Goal{
				{
					Goal:                  "Order of operations",
					MaxPoints:             1,
					FullCreditCriteria:    "9",
					PartialCreditCriteria: "Parentheses done, wrong product",
					NoCreditCriteria:      "Other",
				},
			},
		},
	}}
}

func TestParse_Scenario(t *testing.T) {
	got := rubric.Parse(scenarioText, nil)

	if len(got.Questions) != 2 {
		t.Fatalf("len(Questions) = %d, want 2", len(got.Questions))
	}

	q0, q1 := got.Questions[0], got.Questions[1]
	if q0.Index != 0 || q1.Index != 1 {
		t.Errorf("indexes = %d,%d, want 0,1", q0.Index, q1.Index)
	}
	if q0.Prompt != "What is 2+3?" {
		t.Errorf("q0.Prompt = %q", q0.Prompt)
	}
	if q0.TotalPoints != 3 {
		t.Errorf("q0.TotalPoints = %d, want 3 (explicit)", q0.TotalPoints)
	}
	if q1.TotalPoints != 2 {
		t.Errorf("q1.TotalPoints = %d, want 2 (derived)", q1.TotalPoints)
	}

	wantGoal := rubric.Goal{
		Goal:                  "Addition",
		MaxPoints:             3,
		FullCreditCriteria:    "Correct sum with work shown",
		PartialCreditCriteria: "Correct sum, no work",
		NoCreditCriteria:      "Incorrect or missing",
	}
	if len(q0.Goals) != 1 || !reflect.DeepEqual(q0.Goals[0], wantGoal) {
		t.Errorf("q0.Goals = %+v, want [%+v]", q0.Goals, wantGoal)
	}
	if len(q1.Goals) != 1 || q1.Goals[0].Goal != "Isolate variable" || q1.Goals[0].NoCreditCriteria != "No attempt" {
		t.Errorf("q1.Goals = %+v", q1.Goals)
	}
	if q0.NotesForTeacher != "" || q1.NotesForTeacher != "" {
		t.Errorf("unexpected notes: %q / %q", q0.NotesForTeacher, q1.NotesForTeacher)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	goal := func(name string, points int, full, partial, none string) rubric.Goal {
		return rubric.Goal{
			Goal:                  name,
			MaxPoints:             points,
			FullCreditCriteria:    full,
			PartialCreditCriteria: partial,
			NoCreditCriteria:      none,
		}
	}

	tests := []struct {
		name string
		r    *rubric.Rubric
	}{
		{
			name: "sample",
			r:    sampleRubric(),
		},
		{
			name: "question without goals",
			r: &rubric.Rubric{Questions: []rubric.Question{
				{Index: 0, Prompt: "Explain your reasoning", TotalPoints: 5, Goals: []rubric.Goal{}},
			}},
		},
		{
			name: "explicit total differs from goal sum",
			r: &rubric.Rubric{Questions: []rubric.Question{
				{Index: 0, Prompt: "Simplify 6/8", TotalPoints: 7, Goals: []rubric.Goal{
					goal("Common factor", 2, "Divides by 2", "Divides once", "None"),
					goal("Lowest terms", 3, "3/4", "6/8 left", "Wrong"),
				}},
			}},
		},
		{
			name: "decomposed accents",
			r: &rubric.Rubric{Questions: []rubric.Question{
				{Index: 0, Prompt: "Calcule la moyenne\u0301", TotalPoints: 2, Goals: []rubric.Goal{
					goal("Me\u0301thode", 2, "Somme divise\u0301e par n", "Somme seule", "Aucune"),
				}},
			}},
		},
		{
			name: "non-ascii composed text",
			r: &rubric.Rubric{Questions: []rubric.Question{
				{Index: 0, Prompt: "Berechne √16 × π ≈ ?", TotalPoints: 1, Goals: []rubric.Goal{
					goal("Wurzel ziehen", 1, "√16 = 4", "Größenordnung stimmt", "Keine Antwort"),
				}},
			}},
		},
		{
			name: "goal label with parentheses",
			r: &rubric.Rubric{Questions: []rubric.Question{
				{Index: 0, Prompt: "Expand (a+b)^2", TotalPoints: 3, Goals: []rubric.Goal{
					goal("Uses (a+b) form", 3, "a^2 + 2ab + b^2", "Misses 2ab", "No expansion"),
				}},
			}},
		},
		{
			name: "empty criteria",
			r: &rubric.Rubric{Questions: []rubric.Question{
				{Index: 0, Prompt: "What is 2+3?", TotalPoints: 2, Goals: []rubric.Goal{
					goal("Addition", 2, "5", "", ""),
				}},
				{Index: 1, Prompt: "What is 4-1?", TotalPoints: 1, Goals: []rubric.Goal{
					goal("Subtraction", 1, "", "", "Anything but 3"),
				}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rubric.Parse(rubric.Print(tt.r), &rubric.Rubric{})

			if !reflect.DeepEqual(got, tt.r) {
				t.Errorf("Parse(Print(r)) =\n%+v\nwant\n%+v", got, tt.r)
			}
		})
	}
}

func TestParse_FallbackOnEmpty(t *testing.T) {
	fallback := sampleRubric()

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t\n"},
		{"no headers", "no headers here"},
		{"goal without question", "    - Orphan (2pts):\n      • Full: x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rubric.Parse(tt.text, fallback)
			if got != fallback {
				t.Errorf("Parse(%q) did not return the fallback", tt.text)
			}
		})
	}
}

func TestParse_MalformedPointsDefaultToZero(t *testing.T) {
	text := "1. Q\n    - Label (abcpts):\n      • Full: ok\n"

	got := rubric.Parse(text, nil)

	if len(got.Questions[0].Goals) != 1 {
		t.Fatalf("goals = %+v, want one goal", got.Questions[0].Goals)
	}
	g := got.Questions[0].Goals[0]
	if g.Goal != "Label" || g.MaxPoints != 0 {
		t.Errorf("goal = %+v, want Label with 0 points", g)
	}
	if got.Questions[0].NotesForTeacher != "" {
		t.Errorf("malformed goal line leaked into notes: %q", got.Questions[0].NotesForTeacher)
	}
}

func TestParse_NotesCapture(t *testing.T) {
	text := `1. Simplify 6/8
    Accept 0.75 as equivalent.
    - Reduces fraction (2pts):
      • Full: 3/4
    watch for students who divide by 3
`
	got := rubric.Parse(text, nil)

	q := got.Questions[0]
	want := "Accept 0.75 as equivalent.\nwatch for students who divide by 3"
	if q.NotesForTeacher != want {
		t.Errorf("NotesForTeacher = %q, want %q", q.NotesForTeacher, want)
	}
	if len(q.Goals) != 1 || q.Goals[0].FullCreditCriteria != "3/4" {
		t.Errorf("goals = %+v", q.Goals)
	}
}

func TestParse_ExplicitTotalOverridesDerived(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		want      int
		wantNotes string
	}{
		{
			name: "total after goals",
			text: "1. Q\n - A (2pts):\n - B (3pts):\n (Total Points: 7)\n",
			want: 7,
		},
		{
			name: "total before goals",
			text: "1. Q\n (Total Points: 7)\n - A (2pts):\n - B (3pts):\n",
			want: 7,
		},
		{
			name: "later total wins",
			text: "1. Q\n (Total Points: 4)\n - A (2pts):\n (Total Points: 9)\n",
			want: 9,
		},
		{
			name: "no total derives sum",
			text: "1. Q\n - A (2pts):\n - B (3pts):\n",
			want: 5,
		},
		{
			name:      "unparsable total derives sum and stays a note",
			text:      "1. Q\n - A (2pts):\n - B (3pts):\n (Total Points: lots)\n",
			want:      5,
			wantNotes: "(Total Points: lots)",
		},
		{
			name: "zero total derives sum",
			text: "1. Q\n - A (2pts):\n (Total Points: 0)\n",
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rubric.Parse(tt.text, nil)
			if got.Questions[0].TotalPoints != tt.want {
				t.Errorf("TotalPoints = %d, want %d", got.Questions[0].TotalPoints, tt.want)
			}
			if got.Questions[0].NotesForTeacher != tt.wantNotes {
				t.Errorf("NotesForTeacher = %q, want %q", got.Questions[0].NotesForTeacher, tt.wantNotes)
			}
		})
	}
}

func TestParse_CaseInsensitiveAndCRLF(t *testing.T) {
	text := "1. Q\r\n    - Goal (4 PTS):\r\n      • FULL: all\r\n      • partial: some\r\n      • NoNe: nothing\r\n    (total points: 4)\r\n"

	got := rubric.Parse(text, nil)

	q := got.Questions[0]
	if q.TotalPoints != 4 {
		t.Errorf("TotalPoints = %d, want 4", q.TotalPoints)
	}
	want := rubric.Goal{Goal: "Goal", MaxPoints: 4, FullCreditCriteria: "all", PartialCreditCriteria: "some", NoCreditCriteria: "nothing"}
	if len(q.Goals) != 1 || !reflect.DeepEqual(q.Goals[0], want) {
		t.Errorf("goals = %+v, want [%+v]", q.Goals, want)
	}
	if strings.Contains(q.NotesForTeacher, "\r") || q.NotesForTeacher != "" {
		t.Errorf("NotesForTeacher = %q, want empty", q.NotesForTeacher)
	}
}

func TestParse_IgnoresPreambleAndOrphanCriteria(t *testing.T) {
	text := `Rubric for Unit 3
1. Q
      • Full: no goal open yet
    - G (1pt):
      • Full: yes
`
	got := rubric.Parse(text, nil)

	q := got.Questions[0]
	if q.NotesForTeacher != "" {
		t.Errorf("NotesForTeacher = %q, want empty", q.NotesForTeacher)
	}
	if len(q.Goals) != 1 || q.Goals[0].FullCreditCriteria != "yes" || q.Goals[0].MaxPoints != 1 {
		t.Errorf("goals = %+v", q.Goals)
	}
}

func TestParse_RenumbersQuestionsByPosition(t *testing.T) {
	text := "7. First\n - A (1pts):\n\n3. Second\n - B (1pts):\n"

	got := rubric.Parse(text, nil)

	if len(got.Questions) != 2 {
		t.Fatalf("len(Questions) = %d, want 2", len(got.Questions))
	}
	for i, q := range got.Questions {
		if q.Index != i {
			t.Errorf("Questions[%d].Index = %d", i, q.Index)
		}
	}
}

func TestParse_KeepsTextBytes(t *testing.T) {
	// "é" written as e + combining acute accent must come back unchanged.
	text := "1. Calcule la moyenne\u0301\n - But (1pts):\n"

	got := rubric.Parse(text, nil)

	if got.Questions[0].Prompt != "Calcule la moyenne\u0301" {
		t.Errorf("Prompt = %q, want the decomposed input", got.Questions[0].Prompt)
	}
}

func TestParse_NonNumericTotalIsANote(t *testing.T) {
	got := rubric.Parse("1. Q\n    - G (2pts):\n    (Total Points: ten)\n", nil)

	q := got.Questions[0]
	if q.TotalPoints != 2 {
		t.Errorf("TotalPoints = %d, want derived 2", q.TotalPoints)
	}
	if q.NotesForTeacher != "(Total Points: ten)" {
		t.Errorf("NotesForTeacher = %q, want the unparsed total line", q.NotesForTeacher)
	}
}

func TestParse_QuestionWithoutGoals(t *testing.T) {
	got := rubric.Parse("1. Explain your reasoning\n    (Total Points: 2)\n", nil)

	q := got.Questions[0]
	if len(q.Goals) != 0 || q.TotalPoints != 2 {
		t.Errorf("question = %+v, want no goals and total 2", q)
	}
}
