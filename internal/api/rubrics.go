package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/p-n-ai/mathboard/internal/revision"
	"github.com/p-n-ai/mathboard/internal/rubric"
)

type generateRubricRequest struct {
	AssignmentID string   `json:"assignment_id"`
	Questions    []string `json:"questions"`
	Notes        string   `json:"notes"`
}

// POST /api/rubrics/generate
func (s *Server) handleGenerateRubric(w http.ResponseWriter, r *http.Request) {
	var req generateRubricRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AssignmentID == "" {
		writeError(w, http.StatusBadRequest, "assignment_id is required")
		return
	}

	a, err := s.Classroom.GetAssignment(r.Context(), req.AssignmentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	questions := req.Questions
	if len(questions) == 0 {
		questions = a.Questions
	}
	notes := req.Notes
	if notes == "" {
		notes = a.Notes
	}

	v, err := s.Generator.Generate(r.Context(), a.ID, questions, notes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		"rubric_json":          v.Rubric,
		"rubric_pretty_string": rubric.Print(&v.Rubric),
		"version":              v.Version,
	})
}

type editRubricRequest struct {
	AssignmentID       string `json:"assignment_id"`
	RubricPrettyString string `json:"rubric_pretty_string"`
}

// POST /api/rubrics/edit
func (s *Server) handleEditRubric(w http.ResponseWriter, r *http.Request) {
	var req editRubricRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AssignmentID == "" || req.RubricPrettyString == "" {
		writeError(w, http.StatusBadRequest, "assignment_id and rubric_pretty_string are required")
		return
	}

	change, err := s.Rubrics.Revise(r.Context(), req.AssignmentID, req.RubricPrettyString)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"version":           change.NewVersion,
		"old_version":       change.OldVersion,
		"triggered_regrade": change.TriggeredRegrade,
	})
}

// GET /api/assignments/{id}/rubric[?version=N]
func (s *Server) handleGetRubric(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var (
		v   revision.Version
		err error
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("version")); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "version must be a positive integer")
			return
		}
		v, err = s.Rubrics.Get(r.Context(), id, n)
	} else {
		v, err = s.Rubrics.Latest(r.Context(), id)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"assignment_id":        v.AssignmentID,
		"version":              v.Version,
		"rubric_json":          v.Rubric,
		"rubric_pretty_string": rubric.Print(&v.Rubric),
		"created_at":           v.CreatedAt,
	})
}

// GET /api/assignments/{id}/rubric/versions
func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.Rubrics.Versions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"versions": versions})
}

// GET /api/assignments/{id}/rubric/changes
func (s *Server) handleListChanges(w http.ResponseWriter, r *http.Request) {
	changes, err := s.Rubrics.Changes(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"changes": changes})
}
