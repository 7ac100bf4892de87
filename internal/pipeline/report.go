package pipeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// Report summarises one build. Documents are listed in navigation order.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`

	Sections  int `json:"sections"`
	Completed int `json:"completed"`
	Partial   int `json:"partial"`
	Failed    int `json:"failed"`

	Documents []JobSnapshot `json:"documents"`
	// Artifacts are the batch outputs (sidebar, book, e-book).
	Artifacts []string `json:"artifacts"`
	// Errors are batch-level problems not owned by a single document.
	Errors []string `json:"errors"`
}

func (r *Report) add(s JobSnapshot) {
	switch s.Status {
	case StatusCompleted:
		r.Completed++
	case StatusPartial:
		r.Partial++
	case StatusFailed:
		r.Failed++
	}
	r.Documents = append(r.Documents, s)
}

func (r *Report) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// OK reports whether every document built without a fatal error and every
// batch artifact was written.
func (r *Report) OK() bool {
	return r.Failed == 0 && len(r.Errors) == 0
}

// Document returns the snapshot for a source path, relative to the source
// root.
func (r *Report) Document(relPath string) (JobSnapshot, bool) {
	for _, d := range r.Documents {
		if d.RelPath == relPath {
			return d, true
		}
	}
	return JobSnapshot{}, false
}

// JSON encodes the report with empty lists kept as [].
func (r *Report) JSON() ([]byte, error) {
	out := *r
	if out.Documents == nil {
		out.Documents = []JobSnapshot{}
	}
	if out.Artifacts == nil {
		out.Artifacts = []string{}
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	return json.MarshalIndent(out, "", "  ")
}
