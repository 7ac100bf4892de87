package api

import (
	"net/http"

	"github.com/dgallion1/docpress/internal/pipeline"
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.orchestrator.LastReport()
	if report == nil {
		jsonError(w, "no completed build", http.StatusNotFound)
		return
	}
	data, err := report.JSON()
	if err != nil {
		jsonError(w, "encode report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleListDocuments lists the documents of the last build, optionally
// filtered by ?status=.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	report := s.orchestrator.LastReport()
	if report == nil {
		jsonError(w, "no completed build", http.StatusNotFound)
		return
	}

	status := pipeline.JobStatus(r.URL.Query().Get("status"))
	docs := []pipeline.JobSnapshot{}
	for _, d := range report.Documents {
		if status == "" || d.Status == status {
			docs = append(docs, d)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":    report.RunID,
		"documents": docs,
	})
}
