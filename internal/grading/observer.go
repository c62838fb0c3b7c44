package grading

import "github.com/quipper/poc/grader/pkg/common/logger"

// Observer receives outcome events of a grading run. Errors are still returned
// to callers; observers only report them.
type Observer interface {
	PageFetched(courseID string, page, count, total int)
	PageFailed(courseID string, page int, err error)
	// PageLimitReached fires instead of a request once maxPages requests were sent.
	PageLimitReached(courseID string, maxPages int)
	Unresolved(courseID string, loginIDs []string)
	GradesSubmitted(courseID, assignmentID string, students int, response []byte)
	SubmitFailed(courseID, assignmentID string, err error)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) PageFetched(string, int, int, int)           {}
func (NopObserver) PageFailed(string, int, error)               {}
func (NopObserver) PageLimitReached(string, int)                {}
func (NopObserver) Unresolved(string, []string)                 {}
func (NopObserver) GradesSubmitted(string, string, int, []byte) {}
func (NopObserver) SubmitFailed(string, string, error)          {}

// LogObserver reports events through the package logger.
type LogObserver struct {
	// RunID tags every line of one run.
	RunID string
}

func (o LogObserver) PageFetched(courseID string, page, count, total int) {
	logger.Info("[GET] run=%s course=%s page=%d students=%d total=%d", o.RunID, courseID, page, count, total)
}

func (o LogObserver) PageFailed(courseID string, page int, err error) {
	logger.Error("[GET] run=%s course=%s page=%d: %v", o.RunID, courseID, page, err)
}

func (o LogObserver) PageLimitReached(courseID string, maxPages int) {
	logger.Error("[GET] run=%s course=%s: page limit of %d requests reached", o.RunID, courseID, maxPages)
}

func (o LogObserver) Unresolved(courseID string, loginIDs []string) {
	logger.Warn("run=%s course=%s: %d login id(s) not enrolled as students, skipped: %v", o.RunID, courseID, len(loginIDs), loginIDs)
}

func (o LogObserver) GradesSubmitted(courseID, assignmentID string, students int, response []byte) {
	logger.Info("[POST] run=%s course=%s assignment=%s students=%d", o.RunID, courseID, assignmentID, students)
	logger.Debug("[POST] run=%s response: %s", o.RunID, string(response))
}

func (o LogObserver) SubmitFailed(courseID, assignmentID string, err error) {
	logger.Error("[POST] run=%s course=%s assignment=%s: %v", o.RunID, courseID, assignmentID, err)
}
