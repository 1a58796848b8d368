package httptransport

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"gradegate/internal/platform/middleware"
	dErrors "gradegate/pkg/domain-errors"
)

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	token, _, err := h.identity.Login(r.Context(), req.Assertion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "Bearer"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		writeError(w, dErrors.New(dErrors.CodeUnauthenticated, "missing bearer token"))
		return
	}
	if err := h.identity.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	// RequireAuth already validated the token; resolving again returns the
	// full user record rather than just the caller identity.
	_, u, err := h.resolver.Resolve(r.Context(), middleware.BearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleBootstrap creates the first admin account. Guarded by a bcrypt-hashed
// shared token instead of a bearer token: there is no one to log in as yet.
func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if h.bootstrapTokenHash == "" {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "bootstrap is not enabled"))
		return
	}
	token := r.Header.Get("X-Bootstrap-Token")
	if err := bcrypt.CompareHashAndPassword([]byte(h.bootstrapTokenHash), []byte(token)); err != nil {
		writeError(w, dErrors.New(dErrors.CodeUnauthenticated, "invalid bootstrap token"))
		return
	}

	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.identity.BootstrapAdmin(r.Context(), req.Name, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}
