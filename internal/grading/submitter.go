package grading

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
)

// API is the slice of the LMS client a Submitter needs.
type API interface {
	StudentLister
	UpdateGrades(ctx context.Context, courseID, assignmentID string, form url.Values) ([]byte, error)
}

// Submission asks for one grade to be posted for several students of one
// assignment. The access token lives in the API client.
type Submission struct {
	CourseID     string
	AssignmentID string
	LoginIDs     []string
	Grade        string
}

// Result describes a completed batch update.
type Result struct {
	// Roster is the number of students enrolled in the course.
	Roster     int
	Resolved   []int64
	Unresolved []string
	// Response is the raw, uninterpreted body of the update call.
	Response []byte
}

type Submitter struct {
	api      API
	fetcher  *Fetcher
	observer Observer
}

// NewSubmitter wires a Submitter and its roster Fetcher to the same API.
func NewSubmitter(api API, maxPages int, observer Observer) *Submitter {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Submitter{
		api:      api,
		fetcher:  NewFetcher(api, maxPages, observer),
		observer: observer,
	}
}

// Submit fetches the roster, resolves the login IDs and posts exactly one batch
// update. Nothing is written when the roster cannot be fetched or is empty.
// Submissions are not deduplicated: the same Submission twice posts twice.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (*Result, error) {
	students, err := s.fetcher.FetchRoster(ctx, sub.CourseID)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		err := errors.Wrapf(ErrNoStudents, "course %s", sub.CourseID)
		s.observer.SubmitFailed(sub.CourseID, sub.AssignmentID, err)
		return nil, err
	}

	ids, unresolved := ResolveIDs(sub.LoginIDs, students)
	if len(unresolved) > 0 {
		s.observer.Unresolved(sub.CourseID, unresolved)
	}

	payload := BuildPayload(ids, sub.Grade)
	body, err := s.api.UpdateGrades(ctx, sub.CourseID, sub.AssignmentID, payload.Values())
	if err != nil {
		s.observer.SubmitFailed(sub.CourseID, sub.AssignmentID, err)
		return nil, errors.WithMessagef(err, "update grades of assignment %s", sub.AssignmentID)
	}
	s.observer.GradesSubmitted(sub.CourseID, sub.AssignmentID, len(ids), body)

	return &Result{
		Roster:     len(students),
		Resolved:   ids,
		Unresolved: unresolved,
		Response:   body,
	}, nil
}
