package grading

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quipper/poc/grader/internal/canvas"
)

func TestSubmit(t *testing.T) {
	api := newFakeAPI(25, 10)
	obs := &recordingObserver{}
	s := NewSubmitter(api, 0, obs)

	res, err := s.Submit(context.Background(), Submission{
		CourseID:     "101",
		AssignmentID: "7",
		LoginIDs:     []string{"net22", "net3", "ghost"},
		Grade:        "95",
	})
	require.NoError(t, err)

	assert.Equal(t, 25, res.Roster)
	assert.Equal(t, []int64{3, 22}, res.Resolved)
	assert.Equal(t, []string{"ghost"}, res.Unresolved)
	assert.JSONEq(t, `{"id":1,"workflow_state":"queued"}`, string(res.Response))

	require.Len(t, api.updates, 1)
	call := api.updates[0]
	assert.Equal(t, "101", call.courseID)
	assert.Equal(t, "7", call.assignmentID)
	assert.Equal(t, BuildPayload([]int64{3, 22}, "95").Values(), call.form)

	kinds := []string{}
	for _, e := range obs.events {
		kinds = append(kinds, e.kind)
	}
	assert.Equal(t, []string{"page", "page", "page", "page", "unresolved", "submitted"}, kinds)
}

func TestSubmitEmptyRosterWritesNothing(t *testing.T) {
	api := newFakeAPI(0, 10)
	obs := &recordingObserver{}

	res, err := NewSubmitter(api, 0, obs).Submit(context.Background(), Submission{CourseID: "101", AssignmentID: "7", LoginIDs: []string{"a"}, Grade: "1"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoStudents)
	assert.Empty(t, api.updates)
	assert.Equal(t, "submit-failed", obs.events[len(obs.events)-1].kind)
}

func TestSubmitRosterFailureWritesNothing(t *testing.T) {
	api := newFakeAPI(25, 10)
	api.failPage = 3
	api.pageErr = canvas.ErrMalformedPage

	_, err := NewSubmitter(api, 0, nil).Submit(context.Background(), Submission{CourseID: "101", AssignmentID: "7", LoginIDs: []string{"net1"}, Grade: "1"})
	assert.ErrorIs(t, err, canvas.ErrMalformedPage)
	assert.Empty(t, api.updates)
}

func TestSubmitWriteFailureIsNotRetried(t *testing.T) {
	api := newFakeAPI(3, 10)
	api.updateErr = &canvas.HTTPError{Method: "POST", StatusCode: 500, Body: []byte("boom")}
	obs := &recordingObserver{}

	res, err := NewSubmitter(api, 0, obs).Submit(context.Background(), Submission{CourseID: "101", AssignmentID: "7", LoginIDs: []string{"net1"}, Grade: "1"})
	assert.Nil(t, res)
	var httpErr *canvas.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 500, httpErr.StatusCode)
	assert.Len(t, api.updates, 1)
	assert.Equal(t, "submit-failed", obs.events[len(obs.events)-1].kind)
}

func TestSubmitTwiceSendsTwoIdenticalWrites(t *testing.T) {
	api := newFakeAPI(5, 2)
	s := NewSubmitter(api, 0, nil)
	sub := Submission{CourseID: "101", AssignmentID: "7", LoginIDs: []string{"net1", "net5"}, Grade: "88"}

	_, err := s.Submit(context.Background(), sub)
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), sub)
	require.NoError(t, err)

	require.Len(t, api.updates, 2)
	assert.Equal(t, api.updates[0], api.updates[1])
}

func TestSubmitNothingResolvedStillPostsOnce(t *testing.T) {
	api := newFakeAPI(3, 10)

	res, err := NewSubmitter(api, 0, nil).Submit(context.Background(), Submission{CourseID: "101", AssignmentID: "7", LoginIDs: []string{"nobody"}, Grade: "1"})
	require.NoError(t, err)
	assert.Empty(t, res.Resolved)
	assert.Equal(t, []string{"nobody"}, res.Unresolved)
	require.Len(t, api.updates, 1)
	assert.Empty(t, api.updates[0].form)
}
