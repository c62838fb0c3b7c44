package grading

import (
	"context"
	"fmt"
	"net/url"

	"github.com/quipper/poc/grader/pkg/repositories/roster"
)

type updateCall struct {
	courseID, assignmentID string
	form                   url.Values
}

// fakeAPI serves a fixed roster in pages of pageSize and records every call.
type fakeAPI struct {
	students []roster.Enrollee
	pageSize int
	// failPage makes that page return pageErr.
	failPage int
	pageErr  error
	// endless never returns an empty page.
	endless bool

	updateBody []byte
	updateErr  error

	pageCalls []int
	updates   []updateCall
}

func newFakeAPI(n, pageSize int) *fakeAPI {
	f := &fakeAPI{pageSize: pageSize, updateBody: []byte(`{"id":1,"workflow_state":"queued"}`)}
	for i := 1; i <= n; i++ {
		f.students = append(f.students, roster.Enrollee{ID: int64(i), LoginID: fmt.Sprintf("net%d", i)})
	}
	return f
}

func (f *fakeAPI) ListStudentsPage(_ context.Context, _ string, page int) ([]roster.Enrollee, error) {
	f.pageCalls = append(f.pageCalls, page)
	if page == f.failPage {
		return nil, f.pageErr
	}
	if f.endless {
		return []roster.Enrollee{{ID: int64(page), LoginID: fmt.Sprintf("p%d", page)}}, nil
	}
	start := (page - 1) * f.pageSize
	if start >= len(f.students) {
		return []roster.Enrollee{}, nil
	}
	end := start + f.pageSize
	if end > len(f.students) {
		end = len(f.students)
	}
	return append([]roster.Enrollee(nil), f.students[start:end]...), nil
}

func (f *fakeAPI) UpdateGrades(_ context.Context, courseID, assignmentID string, form url.Values) ([]byte, error) {
	f.updates = append(f.updates, updateCall{courseID: courseID, assignmentID: assignmentID, form: form})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateBody, nil
}

type event struct {
	kind  string
	page  int
	total int
	err   error
	ids   []string
}

type recordingObserver struct{ events []event }

func (o *recordingObserver) PageFetched(_ string, page, _, total int) {
	o.events = append(o.events, event{kind: "page", page: page, total: total})
}
func (o *recordingObserver) PageFailed(_ string, page int, err error) {
	o.events = append(o.events, event{kind: "page-failed", page: page, err: err})
}
func (o *recordingObserver) PageLimitReached(_ string, maxPages int) {
	o.events = append(o.events, event{kind: "page-limit", page: maxPages})
}
func (o *recordingObserver) Unresolved(_ string, ids []string) {
	o.events = append(o.events, event{kind: "unresolved", ids: ids})
}
func (o *recordingObserver) GradesSubmitted(_, _ string, students int, _ []byte) {
	o.events = append(o.events, event{kind: "submitted", total: students})
}
func (o *recordingObserver) SubmitFailed(_, _ string, err error) {
	o.events = append(o.events, event{kind: "submit-failed", err: err})
}
