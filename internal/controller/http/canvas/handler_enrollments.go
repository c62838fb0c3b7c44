package canvas

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/quipper/poc/grader/pkg/common/logger"
	rosterRepo "github.com/quipper/poc/grader/pkg/repositories/roster"
)

type enrollRequest struct {
	rosterRepo.Enrollee
	Role string `json:"role"`
}

var validRoles = map[string]bool{
	rosterRepo.RoleStudent:  true,
	rosterRepo.RoleTeacher:  true,
	rosterRepo.RoleTA:       true,
	rosterRepo.RoleObserver: true,
}

// This is NOT part of the Canvas API. Provided only to seed the sandbox roster.
// enroll POST /api/v1/courses/{courseId}/enrollments
func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.LoginID = strings.TrimSpace(req.LoginID)
	if req.LoginID == "" {
		writeError(w, http.StatusBadRequest, "login_id is required")
		return
	}
	if req.Role == "" {
		req.Role = rosterRepo.RoleStudent
	}
	if !validRoles[req.Role] {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	e := req.Enrollee
	if err := h.roster.Upsert(r.Context(), courseID, req.Role, &e); err != nil {
		logger.Error("enroll: course=%s login=%s: %v", courseID, req.LoginID, err)
		writeError(w, http.StatusInternalServerError, "failed to enroll user")
		return
	}
	logger.Debug("enroll: course=%s login=%s id=%d role=%s", courseID, e.LoginID, e.ID, req.Role)
	writeJSON(w, http.StatusOK, &e)
}

// This is NOT part of the Canvas API. Provided only for sandbox convenience.
// unenroll DELETE /api/v1/courses/{courseId}/enrollments/{userId}
func (h *Handler) unenroll(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.roster.Delete(r.Context(), courseID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "The specified resource does not exist.")
			return
		}
		logger.Error("unenroll: course=%s user=%d: %v", courseID, id, err)
		writeError(w, http.StatusInternalServerError, "failed to unenroll user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
