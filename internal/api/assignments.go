package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/p-n-ai/mathboard/internal/catalog"
	"github.com/p-n-ai/mathboard/internal/classroom"
)

type createAssignmentRequest struct {
	TeacherID   string   `json:"teacher_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Questions   []string `json:"questions"`
	Notes       string   `json:"notes"`
	TemplateID  string   `json:"template_id"`
}

// POST /api/assignments
func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var tmpl catalog.Template
	if req.TemplateID != "" {
		var ok bool
		if s.Templates != nil {
			tmpl, ok = s.Templates.Get(req.TemplateID)
		}
		if !ok {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		req = fromTemplate(req, tmpl)
	}

	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	a, err := s.Classroom.CreateAssignment(r.Context(), classroom.Assignment{
		TeacherID:   req.TeacherID,
		Title:       req.Title,
		Description: req.Description,
		Questions:   req.Questions,
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	body := envelope{"assignment_id": a.ID, "assignment": a}
	if req.TemplateID != "" && tmpl.HasRubric() {
		v, err := s.Rubrics.Create(r.Context(), a.ID, tmpl.Rubric())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		body["rubric_version"] = v.Version
	}

	slog.Info("assignment created", "assignment_id", a.ID, "template_id", req.TemplateID, "questions", len(a.Questions))
	writeJSON(w, http.StatusCreated, body)
}

// fromTemplate fills fields the request left empty from the template.
func fromTemplate(req createAssignmentRequest, t catalog.Template) createAssignmentRequest {
	if req.Title == "" {
		req.Title = t.Title
	}
	if req.Description == "" {
		req.Description = t.Description
	}
	if len(req.Questions) == 0 {
		req.Questions = t.Questions
	}
	if req.Notes == "" {
		req.Notes = t.Notes
	}
	return req
}

// GET /api/assignments/{id}
func (s *Server) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := s.Classroom.GetAssignment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"assignment": a})
}

// GET /api/templates
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := []catalog.Template{}
	if s.Templates != nil {
		templates = s.Templates.All()
	}
	type item struct {
		catalog.Template
		WithRubric bool `json:"has_rubric"`
	}
	items := make([]item, len(templates))
	for i, t := range templates {
		items[i] = item{Template: t, WithRubric: t.HasRubric()}
	}
	writeJSON(w, http.StatusOK, envelope{"templates": items})
}
