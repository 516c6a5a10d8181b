// package session issues browser sessions and tracks pending OAuth states
package session

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

const CookieName = "session_id"

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	o.HttpOnly = true
	return o
}

// OptionsFor derives cookie flags for r from the frontend origin.
//
// Secure is set when the frontend is served over https. SameSite is None when the frontend host
// differs from the host r was sent to, and Lax otherwise.
func OptionsFor(frontend *url.URL, r *http.Request) CookieOptions {
	opts := CookieOptions{HttpOnly: true, SameSite: http.SameSiteLaxMode}
	if frontend == nil {
		return opts.normalize()
	}
	opts.Secure = frontend.Scheme == "https"
	if !strings.EqualFold(frontend.Hostname(), requestHost(r)) {
		opts.SameSite = http.SameSiteNoneMode
	}
	return opts.normalize()
}

func requestHost(r *http.Request) string {
	host := r.Host
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return strings.Trim(h, "[]")
	}
	return strings.Trim(host, "[]")
}

// SetCookie issues the session cookie to the client. It lives for the browser session.
func SetCookie(w http.ResponseWriter, sessionID string, opts CookieOptions) {
	opts = opts.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     opts.Path,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearCookie removes the session cookie from the client.
func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	opts = opts.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     opts.Path,
		MaxAge:   -1,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
