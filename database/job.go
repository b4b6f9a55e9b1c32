package database

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Finished reports whether the status is terminal
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobType represents the type of job
type JobType string

const (
	// JobTypeSession is one document inserted onto the surface
	JobTypeSession JobType = "session"
	JobTypeCleanup JobType = "cleanup"
)

// Job represents a background job or operation
type Job struct {
	ID          ulid.ULID  `json:"id"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`         // 0-100
	CurrentStep string     `json:"currentStep"`      // eg Rendering(3)
	TotalSteps  int        `json:"totalSteps"`       // page count for sessions
	Message     string     `json:"message"`          // Status message
	Error       string     `json:"error,omitempty"`  // Error message if failed
	Result      string     `json:"result,omitempty"` // JSON result data
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// SessionSummary is stored as the Result of a finished session job
type SessionSummary struct {
	Document string  `json:"document"`
	Scale    string  `json:"scale"`
	Pages    int     `json:"pages"`
	Sent     int     `json:"sent"`
	Inserted int     `json:"inserted"`
	Failed   []int   `json:"failed,omitempty"`
	Warnings []int   `json:"warnings,omitempty"`
	Cursor   float64 `json:"cursor"`
}
