package roster

import "context"

// Enrollment roles as accepted by the users listing `enrollment_type` filter.
const (
	RoleStudent  = "student"
	RoleTeacher  = "teacher"
	RoleTA       = "ta"
	RoleObserver = "observer"
)

// Enrollee is a user enrolled in a course.
// ID is assigned by the LMS and is opaque to operators; LoginID is the
// institutional login (e.g. a NetID) and is unique within a course.
type Enrollee struct {
	ID           int64  `json:"id"`
	LoginID      string `json:"login_id"`
	Name         string `json:"name,omitempty"`
	SortableName string `json:"sortable_name,omitempty"`
	Email        string `json:"email,omitempty"`

	// Raw keeps the full object as returned by the API, profile fields included.
	Raw []byte `json:"-"`
}

// Repository stores course enrollments for the sandbox LMS.
type Repository interface {
	// ListPage returns enrollees of the given role for a course ordered by
	// enrollment, along with the total count for that course and role.
	// An empty role matches every role.
	ListPage(ctx context.Context, courseID, role string, offset, limit int) ([]*Enrollee, int, error)
	// Upsert creates or updates an enrollment keyed by (courseID, LoginID).
	// A zero ID is assigned by the store.
	Upsert(ctx context.Context, courseID, role string, e *Enrollee) error
	// Enrolled reports which of ids are enrolled in the course with the given role.
	Enrolled(ctx context.Context, courseID, role string, ids []int64) (map[int64]bool, error)
	Delete(ctx context.Context, courseID string, id int64) error
	Disconnect()
}
