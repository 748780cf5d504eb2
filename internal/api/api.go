// Package api exposes assignments, rubrics, submissions, grading and progress
// over JSON HTTP. Every response is an envelope with an "ok" field; failures
// carry an "error" message.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/mathboard/internal/catalog"
	"github.com/p-n-ai/mathboard/internal/classroom"
	"github.com/p-n-ai/mathboard/internal/grading"
	"github.com/p-n-ai/mathboard/internal/progress"
	"github.com/p-n-ai/mathboard/internal/realtime"
	"github.com/p-n-ai/mathboard/internal/revision"
	"github.com/p-n-ai/mathboard/internal/rubric"
)

const maxBodyBytes = 1 << 20

// Deps holds the services behind the HTTP API. Templates and Hub are optional.
type Deps struct {
	Classroom classroom.Store
	Rubrics   *revision.Service
	Generator *grading.Generator
	Grader    *grading.Grader
	Progress  *progress.Service
	Templates *catalog.Loader
	Hub       *realtime.Hub
}

// Server serves the HTTP API.
type Server struct {
	Deps
}

// New creates an API server.
func New(deps Deps) *Server {
	return &Server{Deps: deps}
}

// Register adds all API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/assignments", s.handleCreateAssignment)
	mux.HandleFunc("GET /api/assignments/{id}", s.handleGetAssignment)
	mux.HandleFunc("GET /api/templates", s.handleListTemplates)

	mux.HandleFunc("POST /api/rubrics/generate", s.handleGenerateRubric)
	mux.HandleFunc("POST /api/rubrics/edit", s.handleEditRubric)
	mux.HandleFunc("GET /api/assignments/{id}/rubric", s.handleGetRubric)
	mux.HandleFunc("GET /api/assignments/{id}/rubric/versions", s.handleListVersions)
	mux.HandleFunc("GET /api/assignments/{id}/rubric/changes", s.handleListChanges)

	mux.HandleFunc("POST /api/submissions", s.handleCreateSubmission)
	mux.HandleFunc("POST /api/submissions/update", s.handleUpdateSubmission)
	mux.HandleFunc("POST /api/grade/question", s.handleGradeQuestion)
	mux.HandleFunc("GET /api/assignment/progress", s.handleProgress)

	if s.Hub != nil {
		mux.HandleFunc("GET /ws/assignments/{id}/changes", s.Hub.ServeWS)
	}
}

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["ok"] = true
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{"ok": false, "error": msg})
}

// writeServiceError maps package sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, revision.ErrNotFound),
		errors.Is(err, classroom.ErrAssignmentNotFound),
		errors.Is(err, classroom.ErrSubmissionNotFound),
		errors.Is(err, grading.ErrSubmissionNotFound),
		errors.Is(err, grading.ErrRubricNotFound),
		errors.Is(err, grading.ErrGradeNotFound):
		return http.StatusNotFound
	case errors.Is(err, revision.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, grading.ErrQuestionNotFound),
		errors.Is(err, grading.ErrNoWork),
		errors.Is(err, grading.ErrNoQuestions),
		errors.Is(err, rubric.ErrEmptyRubric),
		errors.Is(err, rubric.ErrInvalidRubric):
		return http.StatusBadRequest
	case errors.Is(err, grading.ErrInvalidModelOutput):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
