package auth

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/session"
	"github.com/desertthunder/vinyl/internal/shared"
)

// stateBytes is the entropy of an OAuth state token.
const stateBytes = 16

// Flow drives the browser side of the authorization code flow.
type Flow struct {
	tokens   *Tokens
	sessions *session.Manager
	broker   *session.Broker
	logger   *log.Logger
}

func NewFlow(tokens *Tokens, sessions *session.Manager, broker *session.Broker, logger *log.Logger) *Flow {
	return &Flow{tokens: tokens, sessions: sessions, broker: broker, logger: logger}
}

// Login starts a login for the caller's session and returns the authorize URL to redirect to.
//
// The session cookie is set on w when the caller has none. The query parameters show_dialog=true
// or force_new_login=true make the provider show its account chooser.
func (f *Flow) Login(w http.ResponseWriter, r *http.Request) (string, error) {
	if f.tokens.config.ClientID == "" {
		return "", fmt.Errorf("%w: SPOTIFY_CLIENT_ID not set", shared.ErrNotConfigured)
	}

	sid, err := f.sessions.GetOrCreate(w, r)
	if err != nil {
		return "", err
	}

	state, err := shared.RandomToken(stateBytes)
	if err != nil {
		return "", err
	}

	ctx := r.Context()
	s, err := f.sessions.Load(ctx, sid)
	if err != nil {
		return "", err
	}
	s.OAuthState = state
	if err := f.sessions.Save(ctx, sid, s); err != nil {
		return "", err
	}
	if err := f.broker.Record(ctx, state, sid); err != nil {
		return "", err
	}

	q := r.URL.Query()
	showDialog := q.Get("show_dialog") == "true" || q.Get("force_new_login") == "true"
	return f.tokens.AuthCodeURL(state, showDialog), nil
}

// Callback validates the provider's redirect and stores the exchanged tokens.
//
// The state must match the pending state of the caller's session, or of the session the broker
// recorded for it. In the second case the caller's cookie is re-pointed at that session.
func (f *Flow) Callback(w http.ResponseWriter, r *http.Request) error {
	if !f.tokens.configured() {
		return shared.ErrNotConfigured
	}

	sid, err := f.sessions.GetOrCreate(w, r)
	if err != nil {
		return err
	}

	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		if reason := q.Get("error"); reason != "" {
			return fmt.Errorf("%w: %s", shared.ErrInvalidCallback, reason)
		}
		return shared.ErrInvalidCallback
	}

	ctx := r.Context()
	s, err := f.sessions.Load(ctx, sid)
	if err != nil {
		return err
	}

	if s.OAuthState != state {
		other, ok := f.broker.Resolve(ctx, state)
		if !ok {
			return shared.ErrInvalidCallback
		}
		recorded, err := f.sessions.Load(ctx, other)
		if err != nil {
			return err
		}
		if recorded.OAuthState != state {
			return shared.ErrInvalidCallback
		}
		if f.logger != nil {
			f.logger.Info("adopting session recorded for oauth state")
		}
		sid = other
		f.sessions.Adopt(w, r, sid)
	}

	_, err = f.tokens.Exchange(ctx, sid, code)
	return err
}
