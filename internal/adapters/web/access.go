package web

import "net/http"

// AccessValidator decides whether a request may reach the write endpoints.
// Real authentication lives outside this service; this seam lets deployments
// plug their own gatekeeper in.
type AccessValidator interface {
	Validate(r *http.Request) error
}

type accessDenied struct{ msg string }

func (e accessDenied) Error() string { return e.msg }

// StaticTokenValidator accepts requests carrying "Bearer <token>" in the
// Authorization header. An empty configured token disables the check,
// which is the expected mode behind an authenticating proxy.
type StaticTokenValidator struct {
	Token string
}

func (v StaticTokenValidator) Validate(r *http.Request) error {
	if v.Token == "" {
		return nil
	}
	if r.Header.Get("Authorization") != "Bearer "+v.Token {
		return accessDenied{msg: "invalid or missing access token"}
	}
	return nil
}

// requireAccess gates a handler behind the configured AccessValidator.
func (h *Handler) requireAccess(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.access.Validate(r); err != nil {
			writeError(w, r, err.Error(), "ACCESS_DENIED", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
