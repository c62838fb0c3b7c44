package grading

import (
	"context"

	"github.com/pkg/errors"

	"github.com/quipper/poc/grader/pkg/repositories/roster"
)

// Roster is the ordered list of student enrollees of one course.
type Roster []roster.Enrollee

// StudentLister fetches one page of a course's students.
// An empty page marks the end of the listing.
type StudentLister interface {
	ListStudentsPage(ctx context.Context, courseID string, page int) ([]roster.Enrollee, error)
}

// Fetcher assembles a full roster page by page.
type Fetcher struct {
	api      StudentLister
	maxPages int
	observer Observer
}

// NewFetcher returns a Fetcher issuing at most maxPages listing requests per
// roster (0 = unbounded). A nil observer discards events.
func NewFetcher(api StudentLister, maxPages int, observer Observer) *Fetcher {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Fetcher{api: api, maxPages: maxPages, observer: observer}
}

// FetchRoster requests pages 1, 2, ... until one comes back empty. Any failing
// or malformed page aborts the fetch and nothing accumulated so far is returned.
// A course with N students in pages of S issues ceil(N/S)+1 requests.
func (f *Fetcher) FetchRoster(ctx context.Context, courseID string) (Roster, error) {
	students := Roster{}
	for page := 1; ; page++ {
		if f.maxPages > 0 && page > f.maxPages {
			f.observer.PageLimitReached(courseID, f.maxPages)
			return nil, errors.Wrapf(ErrPaginationLimitExceeded, "course %s: %d pages requested", courseID, f.maxPages)
		}
		entries, err := f.api.ListStudentsPage(ctx, courseID, page)
		if err != nil {
			f.observer.PageFailed(courseID, page, err)
			return nil, errors.WithMessagef(err, "fetch roster of course %s, page %d", courseID, page)
		}
		students = append(students, entries...)
		f.observer.PageFetched(courseID, page, len(entries), len(students))
		if len(entries) == 0 {
			return students, nil
		}
	}
}
