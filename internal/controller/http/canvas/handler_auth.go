package canvas

import (
	"net/http"
	"strings"

	"github.com/quipper/poc/grader/pkg/common/logger"
)

// requireBearer validates the Authorization: Bearer access token against the
// sandbox keyring (signature, exp, iss and aud).
func (h *Handler) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			logger.Debug("auth: missing bearer token path=%s", r.URL.Path)
			w.Header().Set("WWW-Authenticate", `Bearer realm="canvas-lms"`)
			writeError(w, http.StatusUnauthorized, "user authorization required")
			return
		}
		tokStr := strings.TrimSpace(auth[len("Bearer "):])
		tok, err := h.keys.Verify(tokStr, h.issuer)
		if err != nil {
			logger.Debug("auth: token parse/validate error: %v", err)
			w.Header().Set("WWW-Authenticate", `Bearer realm="canvas-lms", error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "Invalid access token.")
			return
		}
		logger.Debug("auth: ok sub=%s path=%s", tok.Subject(), r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
