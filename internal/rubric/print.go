package rubric

import (
	"strconv"
	"strings"
)

// Print renders r as pretty text:
//
//	1. <prompt>
//	    - <goal> (<n>pts):
//	      • Full: <criteria>
//	      • Partial: <criteria>
//	      • None: <criteria>
//	    (Total Points: <n>)
//	<blank line>
//
// Questions are numbered from 1. A nil or empty rubric prints as "".
func Print(r *Rubric) string {
	if r.IsEmpty() {
		return ""
	}

	var b strings.Builder
	for i, q := range r.Questions {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(q.Prompt)
		b.WriteByte('\n')

		for _, g := range q.Goals {
			b.WriteString("    - ")
			b.WriteString(g.Goal)
			b.WriteString(" (")
			b.WriteString(strconv.Itoa(g.MaxPoints))
			b.WriteString("pts):\n")
			b.WriteString("      • Full: ")
			b.WriteString(g.FullCreditCriteria)
			b.WriteByte('\n')
			b.WriteString("      • Partial: ")
			b.WriteString(g.PartialCreditCriteria)
			b.WriteByte('\n')
			b.WriteString("      • None: ")
			b.WriteString(g.NoCreditCriteria)
			b.WriteByte('\n')
		}

		b.WriteString("    (Total Points: ")
		b.WriteString(strconv.Itoa(q.TotalPoints))
		b.WriteString(")\n\n")
	}
	return b.String()
}
