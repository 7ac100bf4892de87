package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of one document within a build.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusReading     JobStatus = "reading"
	StatusClassifying JobStatus = "classifying"
	StatusRendering   JobStatus = "rendering"
	StatusCompleted   JobStatus = "completed"
	StatusPartial     JobStatus = "partial"
	StatusFailed      JobStatus = "failed"
)

// Job tracks a single source document through a build.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	RunID   string `json:"run_id"`
	RelPath string `json:"rel_path"`
	Section string `json:"section"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`
	Slug   string    `json:"slug"`
	Title  string    `json:"title"`

	Artifacts []string `json:"artifacts"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	errors []string
}

// JobID is stable across builds for the same source path.
func JobID(relPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docpress:"+relPath)).String()
}

// NewJob returns a queued job for the source at relPath.
func NewJob(runID, relPath, section string) *Job {
	now := time.Now()
	return &Job{
		ID:        JobID(relPath),
		RunID:     runID,
		RelPath:   relPath,
		Section:   section,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len reports the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetDocument records the identity of the extracted document.
func (j *Job) SetDocument(slug, title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Slug = slug
	j.Title = title
	j.UpdatedAt = time.Now()
}

func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
}

// AddError records a non-fatal error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed in phase.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, fmt.Sprintf("%s: %s", phase, err))
	j.Status = StatusFailed
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddArtifact records an output path, relative to the output directory.
func (j *Job) AddArtifact(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Artifacts = append(j.Artifacts, path)
	j.UpdatedAt = time.Now()
}

// Errors returns a copy of the recorded errors.
func (j *Job) Errors() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.errors...)
}

// Finish settles the final status: failed jobs stay failed, jobs with
// recorded errors become partial.
func (j *Job) Finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status == StatusFailed {
		return
	}
	if len(j.errors) > 0 {
		j.Status = StatusPartial
	} else {
		j.Status = StatusCompleted
	}
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	RunID       string    `json:"run_id"`
	RelPath     string    `json:"rel_path"`
	Section     string    `json:"section"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Slug        string    `json:"slug,omitempty"`
	Title       string    `json:"title,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	Artifacts   []string  `json:"artifacts"`
	Errors      []string  `json:"errors"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	artifacts := append([]string{}, j.Artifacts...)
	return JobSnapshot{
		ID:          j.ID,
		RunID:       j.RunID,
		RelPath:     j.RelPath,
		Section:     j.Section,
		Status:      j.Status,
		Phase:       j.Phase,
		Slug:        j.Slug,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		Artifacts:   artifacts,
		Errors:      errs,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
