package api

import (
	"encoding/json"
	"net/http"

	"github.com/p-n-ai/mathboard/internal/classroom"
)

type createSubmissionRequest struct {
	AssignmentID string `json:"assignment_id"`
	StudentID    string `json:"student_id"`
	StudentName  string `json:"student_name"`
}

// POST /api/submissions
func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AssignmentID == "" || req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "assignment_id and student_id are required")
		return
	}

	sub, err := s.Classroom.CreateSubmission(r.Context(), classroom.Submission{
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		StudentName:  req.StudentName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"submission_id": sub.ID, "submission": sub})
}

type updateSubmissionRequest struct {
	SubmissionID    string                     `json:"submission_id"`
	WorkJSON        map[string]json.RawMessage `json:"work_json"`
	CurrentQuestion *int                       `json:"current_question"`
	Completed       *bool                      `json:"completed"`
}

// POST /api/submissions/update
func (s *Server) handleUpdateSubmission(w http.ResponseWriter, r *http.Request) {
	var req updateSubmissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SubmissionID == "" || req.WorkJSON == nil {
		writeError(w, http.StatusBadRequest, "submission_id and work_json required")
		return
	}

	if _, err := s.Classroom.UpdateWork(r.Context(), req.SubmissionID, classroom.WorkUpdate{
		Work:            req.WorkJSON,
		CurrentQuestion: req.CurrentQuestion,
		Completed:       req.Completed,
	}); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type gradeQuestionRequest struct {
	SubmissionID  string `json:"submission_id"`
	QuestionIndex *int   `json:"question_index"`
}

// POST /api/grade/question
func (s *Server) handleGradeQuestion(w http.ResponseWriter, r *http.Request) {
	var req gradeQuestionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SubmissionID == "" || req.QuestionIndex == nil {
		writeError(w, http.StatusBadRequest, "submission_id and question_index required")
		return
	}

	g, err := s.Grader.GradeQuestion(r.Context(), req.SubmissionID, *req.QuestionIndex)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"goals":           g.Goals,
		"totalPoints":     g.TotalPoints,
		"maxPoints":       g.MaxPoints,
		"overallFeedback": g.Feedback,
		"rubric_version":  g.RubricVersion,
	})
}
