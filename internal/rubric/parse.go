package rubric

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	questionHeaderRe = regexp.MustCompile(`^(\d+)\.\s*(.+)$`)
	// The point capture is wider than \d+ so "(abcpts)" still opens a goal, worth 0.
	goalHeaderRe  = regexp.MustCompile(`(?i)^\s*-\s+(.+?)\s*\(([^()]*?)\s*pts?\)\s*:\s*$`)
	totalPointsRe = regexp.MustCompile(`(?i)^\s*\(Total Points:\s*([0-9]+)\s*\)\s*$`)
	criteriaRe    = regexp.MustCompile(`(?i)^\s*•\s*(Full|Partial|None):\s*(.*)$`)
)

// Parse reads pretty text produced by Print, possibly hand-edited, back into a
// Rubric. It never fails: if no question header is recognized, fallback is
// returned unchanged.
func Parse(text string, fallback *Rubric) *Rubric {
	if strings.TrimSpace(text) == "" {
		return fallback
	}

	p := &parser{}
	for _, line := range strings.Split(text, "\n") {
		p.line(strings.TrimSuffix(line, "\r"))
	}
	p.finishQuestion()

	if len(p.questions) == 0 {
		return fallback
	}
	return &Rubric{Questions: p.questions}
}

// parser is a two-cursor scanner. q == nil is the NoQuestion state; otherwise
// g == nil is InQuestion/NoGoal and g != nil is InQuestion/InGoal.
type parser struct {
	questions []Question
	q         *Question
	g         *Goal
}

func (p *parser) line(line string) {
	if m := questionHeaderRe.FindStringSubmatch(line); m != nil {
		p.finishQuestion()
		p.q = &Question{
			Index:  len(p.questions),
			Prompt: strings.TrimSpace(m[2]),
			Goals:  []Goal{},
		}
		return
	}

	// Text before the first question has nothing to attach to.
	if p.q == nil {
		return
	}

	// A total that is not a number falls through to the notes.
	if m := totalPointsRe.FindStringSubmatch(line); m != nil {
		if n, ok := parsePoints(m[1]); ok {
			p.q.TotalPoints = n
			return
		}
	}

	if m := goalHeaderRe.FindStringSubmatch(line); m != nil {
		p.finishGoal()
		n, _ := parsePoints(m[2])
		p.g = &Goal{
			Goal:      strings.TrimSpace(m[1]),
			MaxPoints: n,
		}
		return
	}

	if m := criteriaRe.FindStringSubmatch(line); m != nil {
		if p.g == nil {
			return
		}
		text := strings.TrimSpace(m[2])
		switch strings.ToLower(m[1]) {
		case "full":
			p.g.FullCreditCriteria = text
		case "partial":
			p.g.PartialCreditCriteria = text
		case "none":
			p.g.NoCreditCriteria = text
		}
		return
	}

	note := strings.TrimSpace(line)
	if note == "" {
		return
	}
	if p.q.NotesForTeacher == "" {
		p.q.NotesForTeacher = note
	} else {
		p.q.NotesForTeacher += "\n" + note
	}
}

func (p *parser) finishGoal() {
	if p.q != nil && p.g != nil {
		p.q.Goals = append(p.q.Goals, *p.g)
	}
	p.g = nil
}

func (p *parser) finishQuestion() {
	if p.q == nil {
		return
	}
	p.finishGoal()
	if p.q.TotalPoints == 0 && len(p.q.Goals) > 0 {
		p.q.TotalPoints = p.q.GoalPoints()
	}
	p.questions = append(p.questions, *p.q)
	p.q = nil
}

// parsePoints parses a non-negative integer point value.
func parsePoints(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
