package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/p-n-ai/mathboard/internal/progress"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/assignment/progress?id=...[&format=xlsx]
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	report, err := s.Progress.Report(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		// Buffer so a write failure can still become a JSON error.
		var buf bytes.Buffer
		if err := progress.WriteXLSX(&buf, report); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="progress-%s.xlsx"`, id))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"assignment_id":  report.AssignmentID,
		"title":          report.Title,
		"question_count": report.QuestionCount,
		"progress":       report.Progress,
	})
}
