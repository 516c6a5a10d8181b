package session

import (
	"context"
	"net/http"
	"net/url"

	"github.com/desertthunder/vinyl/internal/models"
	"github.com/desertthunder/vinyl/internal/store"
)

// Manager binds browsers to session records through the session cookie.
type Manager struct {
	store    store.Store
	frontend *url.URL
}

// NewManager creates a Manager. frontend is the web client's origin and drives cookie flags.
func NewManager(s store.Store, frontend *url.URL) *Manager {
	return &Manager{store: s, frontend: frontend}
}

// Options returns the cookie flags for r.
func (m *Manager) Options(r *http.Request) CookieOptions {
	return OptionsFor(m.frontend, r)
}

// ID returns the session id carried by r, or "" when there is none or it is malformed.
func (m *Manager) ID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil || !ValidID(c.Value) {
		return ""
	}
	return c.Value
}

// GetOrCreate returns the session id of r, minting one and setting the cookie when r has none.
//
// The record is created empty when the store does not know the id yet.
func (m *Manager) GetOrCreate(w http.ResponseWriter, r *http.Request) (string, error) {
	sid := m.ID(r)
	if sid == "" {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		sid = id
		SetCookie(w, sid, m.Options(r))
	}

	if err := m.ensure(r.Context(), sid); err != nil {
		return "", err
	}
	return sid, nil
}

func (m *Manager) ensure(ctx context.Context, sid string) error {
	ok, err := m.store.Exists(ctx, sid)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return m.store.Set(ctx, sid, &models.Session{})
}

// Load returns the record for sid. Unknown ids yield an empty session.
func (m *Manager) Load(ctx context.Context, sid string) (*models.Session, error) {
	return m.store.Get(ctx, sid)
}

// Save replaces the record for sid.
func (m *Manager) Save(ctx context.Context, sid string, s *models.Session) error {
	return m.store.Set(ctx, sid, s)
}

// Adopt points the browser at sid by re-issuing the session cookie.
func (m *Manager) Adopt(w http.ResponseWriter, r *http.Request, sid string) {
	SetCookie(w, sid, m.Options(r))
}

// Destroy deletes the session carried by r, if any, and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	var err error
	if sid := m.ID(r); sid != "" {
		err = m.store.Delete(r.Context(), sid)
	}
	ClearCookie(w, m.Options(r))
	return err
}
