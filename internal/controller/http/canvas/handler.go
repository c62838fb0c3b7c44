package canvas

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/quipper/poc/grader/pkg/common/keys"
	"github.com/quipper/poc/grader/pkg/common/logger"
	gradesRepo "github.com/quipper/poc/grader/pkg/repositories/grades"
	rosterRepo "github.com/quipper/poc/grader/pkg/repositories/roster"
)

const (
	maxPerPage = 100
	apiPrefix  = "/api/v1"
)

// Handler serves the subset of the Canvas REST API the grader uses, backed by
// local repositories.
type Handler struct {
	roster   rosterRepo.Repository
	grades   gradesRepo.Repository
	keys     *keys.Keyring
	issuer   string
	pageSize int
}

// NewHandler constructs a Handler. issuer must match the tokens minted by kr;
// pageSize is the per_page used when the request does not set one.
func NewHandler(roster rosterRepo.Repository, grades gradesRepo.Repository, kr *keys.Keyring, issuer string, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Handler{
		roster:   roster,
		grades:   grades,
		keys:     kr,
		issuer:   strings.TrimRight(issuer, "/"),
		pageSize: pageSize,
	}
}

// Router returns a chi-based router for the sandbox endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/health", h.health)
	r.Get("/.well-known/jwks.json", h.jwks)

	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(h.requireBearer)
		r.Route("/courses/{courseId}", func(r chi.Router) {
			r.Get("/users", h.listUsers)
			r.Post("/enrollments", h.enroll)
			r.Delete("/enrollments/{userId}", h.unenroll)
			r.Post("/assignments/{assignmentId}/submissions/update_grades", h.updateGrades)
			r.Get("/assignments/{assignmentId}/grades", h.listGrades)
		})
		r.Get("/progress/{progressId}", h.getProgress)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jwks serves the public keys that verify sandbox access tokens.
func (h *Handler) jwks(w http.ResponseWriter, r *http.Request) {
	data, err := h.keys.JWKSJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get JWKS")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("write json: %v", err)
	}
}

type apiError struct {
	Message string `json:"message"`
}

// writeError uses the Canvas error envelope: {"errors":[{"message":"..."}]}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string][]apiError{"errors": {{Message: message}}})
}
