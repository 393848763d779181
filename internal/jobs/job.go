// Package jobs runs tools asynchronously and tracks their stage, progress and result.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

var (
	// ErrJobNotFound is returned for ids the store does not know, including expired jobs
	ErrJobNotFound = errors.New("job not found")

	// ErrResultNotReady is returned when asking for the result of a job that is not done
	ErrResultNotReady = errors.New("job result not ready")
)

// Stage is where a job is in the upload, processing, done or error flow
type Stage string

const (
	StageIdle       Stage = "idle"
	StageProcessing Stage = "processing"
	StageDone       Stage = "done"
	StageError      Stage = "error"
)

// Job is the externally visible state of one tool run
type Job struct {
	ID        string    `json:"id"`
	Tool      string    `json:"tool"`
	Stage     Stage     `json:"stage"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Result    *pdf.Blob `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Finished reports whether the job reached done or error
func (j Job) Finished() bool {
	return j.Stage == StageDone || j.Stage == StageError
}

// Store persists job state and result bytes
type Store interface {
	Save(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	SaveResult(ctx context.Context, id string, data []byte) error
	Result(ctx context.Context, id string) ([]byte, error)
	DeleteResult(ctx context.Context, id string) error
	Close() error
}
