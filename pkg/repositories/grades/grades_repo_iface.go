package grades

import (
	"context"
	"time"
)

// Grade is the latest posted grade of a user for an assignment.
// PostedGrade is kept verbatim; grading schemes are not interpreted.
type Grade struct {
	CourseID     string    `json:"course_id"`
	AssignmentID string    `json:"assignment_id"`
	UserID       int64     `json:"user_id"`
	PostedGrade  string    `json:"posted_grade"`
	ProgressID   int64     `json:"progress_id"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Progress tracks one batch update, mirroring the LMS asynchronous job handle.
type Progress struct {
	ID            int64     `json:"id"`
	ContextID     string    `json:"context_id"`
	Tag           string    `json:"tag"`
	WorkflowState string    `json:"workflow_state"`
	Completion    float64   `json:"completion"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Repository persists posted grades for the sandbox LMS.
type Repository interface {
	// UpsertGrades records all grades of one batch atomically and returns the
	// progress entry describing the batch.
	UpsertGrades(ctx context.Context, courseID, assignmentID string, grades map[int64]string) (*Progress, error)
	ListGrades(ctx context.Context, courseID, assignmentID string) ([]*Grade, error)
	GetProgress(ctx context.Context, id int64) (*Progress, error)
	Disconnect()
}
