package catalog

import "github.com/p-n-ai/mathboard/internal/rubric"

// Template is a reusable assignment loaded from YAML.
type Template struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Subject     string   `yaml:"subject" json:"subject,omitempty"`
	GradeLevel  string   `yaml:"grade_level" json:"grade_level,omitempty"`
	Questions   []string `yaml:"questions" json:"questions"`
	Notes       string   `yaml:"notes" json:"notes,omitempty"`
	// RubricText is a ready-made rubric in the pretty-printed text format.
	RubricText string `yaml:"rubric_text" json:"-"`
}

// HasRubric reports whether the template ships its own rubric.
func (t Template) HasRubric() bool {
	return t.Rubric() != nil
}

// Rubric parses RubricText. It returns nil when the template has no usable rubric.
func (t Template) Rubric() *rubric.Rubric {
	return rubric.Parse(t.RubricText, nil)
}
