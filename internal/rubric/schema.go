package rubric

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrInvalidRubric is returned by Decode when JSON does not match the rubric schema.
	ErrInvalidRubric = errors.New("invalid rubric json")
	// ErrEmptyRubric is returned by Decode when the rubric has no questions.
	ErrEmptyRubric = errors.New("rubric has no questions")
)

// Schema is the JSON Schema for persisted and LLM-generated rubrics.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["prompt", "goals"],
        "properties": {
          "index": {"type": "integer"},
          "prompt": {"type": "string"},
          "totalPoints": {"type": ["integer", "null"]},
          "notesForTeacher": {"type": ["string", "null"]},
          "goals": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["goal", "maxPoints"],
              "properties": {
                "goal": {"type": "string"},
                "maxPoints": {"type": "integer", "minimum": 0},
                "fullCreditCriteria": {"type": ["string", "null"]},
                "partialCreditCriteria": {"type": ["string", "null"]},
                "noCreditCriteria": {"type": ["string", "null"]}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(Schema))
	})
	return schema, schemaErr
}

// Decode validates data against Schema and returns the normalized rubric.
func Decode(data []byte) (*Rubric, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile rubric schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRubric, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidRubric, strings.Join(msgs, "; "))
	}

	var r Rubric
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRubric, err)
	}
	if r.IsEmpty() {
		return nil, ErrEmptyRubric
	}
	r.Normalize()
	return &r, nil
}
