package canvas

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quipper/poc/grader/pkg/common/logger"
	rosterRepo "github.com/quipper/poc/grader/pkg/repositories/roster"
)

// listUsers GET /api/v1/courses/{courseId}/users?page=&per_page=&enrollment_type=
// Pages past the end are empty arrays, which is how clients detect the end.
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID := chi.URLParam(r, "courseId")
	q := r.URL.Query()

	page := 1
	if ps := q.Get("page"); ps != "" {
		v, err := strconv.Atoi(ps)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = v
	}
	perPage := h.pageSize
	if ps := q.Get("per_page"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			perPage = v
		}
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	role := q.Get("enrollment_type")

	items, total, err := h.roster.ListPage(ctx, courseID, role, (page-1)*perPage, perPage)
	if err != nil {
		logger.Error("list users: course=%s: %v", courseID, err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if items == nil {
		items = []*rosterRepo.Enrollee{}
	}
	logger.Debug("list users: course=%s role=%q page=%d per_page=%d count=%d total=%d", courseID, role, page, perPage, len(items), total)

	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	links := []string{
		linkHeader(r, page, perPage, "current"),
		linkHeader(r, 1, perPage, "first"),
	}
	if page < lastPage {
		links = append(links, linkHeader(r, page+1, perPage, "next"))
	}
	links = append(links, linkHeader(r, lastPage, perPage, "last"))
	for _, l := range links {
		w.Header().Add("Link", l)
	}
	writeJSON(w, http.StatusOK, items)
}

func linkHeader(r *http.Request, page, perPage int, rel string) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	u := url.URL{Scheme: scheme, Host: host, Path: r.URL.Path}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()
	return "<" + u.String() + `>; rel="` + rel + `"`
}
