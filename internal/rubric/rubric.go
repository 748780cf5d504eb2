// Package rubric holds the structured rubric model and its plain-text codec.
//
// A rubric is printed as teacher-editable text with Print and read back with
// Parse. Parse is tolerant of hand edits: unrecognized lines inside a question
// become teacher notes, malformed point values become 0, and text with no
// recognizable question falls back to the previous rubric.
package rubric

// Rubric is the graded specification for one assignment version.
type Rubric struct {
	Questions []Question `json:"questions"`
}

// Question is one prompt in a rubric. Index is its position in the rubric.
type Question struct {
	Index           int    `json:"index"`
	Prompt          string `json:"prompt"`
	TotalPoints     int    `json:"totalPoints"`
	Goals           []Goal `json:"goals"`
	NotesForTeacher string `json:"notesForTeacher,omitempty"`
}

// Goal is one scored learning objective within a question.
type Goal struct {
	Goal                  string `json:"goal"`
	MaxPoints             int    `json:"maxPoints"`
	FullCreditCriteria    string `json:"fullCreditCriteria"`
	PartialCreditCriteria string `json:"partialCreditCriteria"`
	NoCreditCriteria      string `json:"noCreditCriteria"`
}

// IsEmpty reports whether r has no questions. An empty rubric is never valid.
func (r *Rubric) IsEmpty() bool {
	return r == nil || len(r.Questions) == 0
}

// Question returns the question at index i.
func (r *Rubric) Question(i int) (Question, bool) {
	if r == nil || i < 0 || i >= len(r.Questions) {
		return Question{}, false
	}
	return r.Questions[i], true
}

// TotalPoints returns the sum of all question totals.
func (r *Rubric) TotalPoints() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, q := range r.Questions {
		total += q.TotalPoints
	}
	return total
}

// GoalPoints returns the sum of the question's goal maxima.
func (q Question) GoalPoints() int {
	sum := 0
	for _, g := range q.Goals {
		sum += g.MaxPoints
	}
	return sum
}

// Normalize repairs a rubric produced outside the parser (LLM output, template
// files): indexes follow position, negative points become 0, and a missing
// question total is derived from its goals.
func (r *Rubric) Normalize() {
	if r == nil {
		return
	}
	for i := range r.Questions {
		q := &r.Questions[i]
		q.Index = i
		if q.Goals == nil {
			q.Goals = []Goal{}
		}
		for j := range q.Goals {
			if q.Goals[j].MaxPoints < 0 {
				q.Goals[j].MaxPoints = 0
			}
		}
		if q.TotalPoints <= 0 && len(q.Goals) > 0 {
			q.TotalPoints = q.GoalPoints()
		}
		if q.TotalPoints < 0 {
			q.TotalPoints = 0
		}
	}
}

// Clone returns a deep copy of r.
func (r *Rubric) Clone() *Rubric {
	if r == nil {
		return nil
	}
	out := &Rubric{Questions: make([]Question, len(r.Questions))}
	for i, q := range r.Questions {
		q.Goals = append([]Goal(nil), q.Goals...)
		out.Questions[i] = q
	}
	return out
}
