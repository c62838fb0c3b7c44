package canvas

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quipper/poc/grader/pkg/common/logger"
	gradesRepo "github.com/quipper/poc/grader/pkg/repositories/grades"
	rosterRepo "github.com/quipper/poc/grader/pkg/repositories/roster"
)

var gradeKey = regexp.MustCompile(`^grade_data\[([^\]]*)\]\[([a-z_]+)\]$`)

// apiProgress is the Canvas Progress object returned by asynchronous endpoints.
type apiProgress struct {
	ID            int64     `json:"id"`
	ContextID     string    `json:"context_id"`
	ContextType   string    `json:"context_type"`
	UserID        *int64    `json:"user_id"`
	Tag           string    `json:"tag"`
	Completion    float64   `json:"completion"`
	WorkflowState string    `json:"workflow_state"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Message       *string   `json:"message"`
	URL           string    `json:"url"`
}

func (h *Handler) toAPIProgress(r *http.Request, p *gradesRepo.Progress) apiProgress {
	out := apiProgress{
		ID:            p.ID,
		ContextID:     p.ContextID,
		ContextType:   "Course",
		Tag:           p.Tag,
		Completion:    p.Completion,
		WorkflowState: p.WorkflowState,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		URL:           baseURL(r) + apiPrefix + "/progress/" + strconv.FormatInt(p.ID, 10),
	}
	if p.Message != "" {
		msg := p.Message
		out.Message = &msg
	}
	return out
}

func baseURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host
}

// parseGradeData extracts grade_data[<user_id>][posted_grade] pairs from a form.
// Other grade_data attributes (text_comment, excuse, ...) are accepted and ignored.
func parseGradeData(form map[string][]string) (map[int64]string, error) {
	out := map[int64]string{}
	for key, vals := range form {
		if !strings.HasPrefix(key, "grade_data") {
			continue
		}
		m := gradeKey.FindStringSubmatch(key)
		if m == nil {
			return nil, &badKeyError{key: key}
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id <= 0 {
			return nil, &badKeyError{key: key}
		}
		if m[2] != "posted_grade" {
			continue
		}
		grade := ""
		if len(vals) > 0 {
			grade = vals[len(vals)-1]
		}
		out[id] = grade
	}
	return out, nil
}

type badKeyError struct{ key string }

func (e *badKeyError) Error() string { return "invalid grade_data key: " + e.key }

// updateGrades POST /api/v1/courses/{courseId}/assignments/{assignmentId}/submissions/update_grades
func (h *Handler) updateGrades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID := chi.URLParam(r, "courseId")
	assignmentID := chi.URLParam(r, "assignmentId")

	if err := r.ParseForm(); err != nil {
		logger.Debug("update grades: parse form: %v", err)
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	grades, err := parseGradeData(r.PostForm)
	if err != nil {
		logger.Debug("update grades: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids := make([]int64, 0, len(grades))
	for id := range grades {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	enrolled, err := h.roster.Enrolled(ctx, courseID, rosterRepo.RoleStudent, ids)
	if err != nil {
		logger.Error("update grades: enrolled lookup course=%s: %v", courseID, err)
		writeError(w, http.StatusInternalServerError, "failed to look up enrollments")
		return
	}
	for _, id := range ids {
		if !enrolled[id] {
			logger.Debug("update grades: user %d not a student of course %s", id, courseID)
			writeError(w, http.StatusNotFound, "The specified resource does not exist.")
			return
		}
	}

	p, err := h.grades.UpsertGrades(ctx, courseID, assignmentID, grades)
	if err != nil {
		logger.Error("update grades: course=%s assignment=%s: %v", courseID, assignmentID, err)
		writeError(w, http.StatusInternalServerError, "failed to update grades")
		return
	}
	logger.Info("update grades: course=%s assignment=%s students=%d progress=%d", courseID, assignmentID, len(grades), p.ID)
	writeJSON(w, http.StatusOK, h.toAPIProgress(r, p))
}

// listGrades GET /api/v1/courses/{courseId}/assignments/{assignmentId}/grades
// Sandbox helper, not part of the Canvas API.
func (h *Handler) listGrades(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	assignmentID := chi.URLParam(r, "assignmentId")
	items, err := h.grades.ListGrades(r.Context(), courseID, assignmentID)
	if err != nil {
		logger.Error("list grades: course=%s assignment=%s: %v", courseID, assignmentID, err)
		writeError(w, http.StatusInternalServerError, "failed to list grades")
		return
	}
	if items == nil {
		items = []*gradesRepo.Grade{}
	}
	writeJSON(w, http.StatusOK, items)
}

// getProgress GET /api/v1/progress/{progressId}
func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "progressId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid progress id")
		return
	}
	p, err := h.grades.GetProgress(r.Context(), id)
	if err != nil {
		logger.Error("get progress %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to get progress")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "The specified resource does not exist.")
		return
	}
	writeJSON(w, http.StatusOK, h.toAPIProgress(r, p))
}
