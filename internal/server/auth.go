package server

import (
	"context"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/session"
	"github.com/desertthunder/vinyl/internal/shared"
)

// LoginFlow runs the two legs of the authorization code flow.
type LoginFlow interface {
	Login(w http.ResponseWriter, r *http.Request) (string, error)
	Callback(w http.ResponseWriter, r *http.Request) error
}

// TokenSource yields a usable access token for a session id.
type TokenSource interface {
	AccessToken(ctx context.Context, sid string) (string, error)
}

// AuthHandler serves the login redirect, the OAuth callback and the session status endpoints.
type AuthHandler struct {
	flow     LoginFlow
	sessions *session.Manager
	redirect string
	logger   *log.Logger
}

// NewAuthHandler creates an AuthHandler. redirect is where the browser lands after a successful
// callback and defaults to "/".
func NewAuthHandler(flow LoginFlow, sessions *session.Manager, redirect string, logger *log.Logger) *AuthHandler {
	if redirect == "" {
		redirect = "/"
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &AuthHandler{flow: flow, sessions: sessions, redirect: redirect, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []Route {
	return []Route{
		{http.MethodGet, "/auth/spotify/login", http.HandlerFunc(h.Login)},
		{http.MethodGet, "/auth/spotify/callback", http.HandlerFunc(h.Callback)},
		{http.MethodGet, "/api/auth/status", http.HandlerFunc(h.Status)},
		{http.MethodPost, "/api/auth/logout", http.HandlerFunc(h.Logout)},
	}
}

// Login redirects to the Spotify authorize page, issuing a session cookie if needed.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	target, err := h.flow.Login(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback completes the flow and sends the browser back to the frontend.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.Callback(w, r); err != nil {
		h.logger.Warn("spotify callback rejected", "error", err, "request_id", RequestIDFrom(r.Context()))
		writeError(w, r, h.logger, err)
		return
	}
	http.Redirect(w, r, h.redirect, http.StatusFound)
}

// Status reports whether the caller's session holds tokens. Expiry is not checked.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if sid := h.sessions.ID(r); sid != "" {
		s, err := h.sessions.Load(r.Context(), sid)
		authenticated = err == nil && s.Authenticated()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": authenticated})
}

// Logout deletes the caller's session and expires the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		h.logger.Warn("failed to delete session", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
