// package auth manages the Spotify OAuth2 authorization code flow and per-session token lifecycle
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/models"
	"github.com/desertthunder/vinyl/internal/session"
	"github.com/desertthunder/vinyl/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	AuthURL  = "https://accounts.spotify.com/authorize"
	TokenURL = "https://accounts.spotify.com/api/token"

	// TokenTimeout bounds every call to the token endpoint.
	TokenTimeout = 15 * time.Second

	// DefaultLifetime is assumed when the token endpoint omits expires_in.
	DefaultLifetime = 3600 * time.Second
)

// Scopes are requested at login. They cover the library, playlists and the Web Playback SDK.
var Scopes = []string{
	"user-read-email",
	"user-library-read",
	"playlist-read-private",
	"streaming",
	"user-read-playback-state",
	"user-modify-playback-state",
}

// Endpoint is the Spotify accounts service. Client credentials travel in the form body.
var Endpoint = oauth2.Endpoint{
	AuthURL:   AuthURL,
	TokenURL:  TokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// Tokens exchanges authorization codes and keeps each session's access token fresh.
type Tokens struct {
	config   *oauth2.Config
	sessions *session.Manager
	client   *http.Client
	group    singleflight.Group
	logger   *log.Logger

	// Now is used to get the current time. This is useful for testing.
	Now func() time.Time
}

// NewTokens creates a token manager for the given credentials.
//
// A nil client gets one with [TokenTimeout].
func NewTokens(conf shared.SpotifyConfig, sessions *session.Manager, client *http.Client, logger *log.Logger) *Tokens {
	if client == nil {
		client = &http.Client{Timeout: TokenTimeout}
	}
	return &Tokens{
		config: &oauth2.Config{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			RedirectURL:  conf.RedirectURI,
			Scopes:       Scopes,
			Endpoint:     Endpoint,
		},
		sessions: sessions,
		client:   client,
		logger:   logger,
		Now:      time.Now,
	}
}

// SetEndpoint points the manager at another accounts service.
func (t *Tokens) SetEndpoint(e oauth2.Endpoint) {
	t.config.Endpoint = e
}

func (t *Tokens) configured() bool {
	return t.config.ClientID != "" && t.config.ClientSecret != ""
}

// AuthCodeURL returns the authorize URL for state. showDialog forces the account chooser.
func (t *Tokens) AuthCodeURL(state string, showDialog bool) string {
	return t.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", strconv.FormatBool(showDialog)))
}

func (t *Tokens) httpContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, TokenTimeout)
	return context.WithValue(ctx, oauth2.HTTPClient, t.client), cancel
}

// Exchange trades code for tokens and stores them in the session sid.
//
// The pending OAuth state is cleared once the tokens are stored.
func (t *Tokens) Exchange(ctx context.Context, sid, code string) (*models.TokenRecord, error) {
	if !t.configured() {
		return nil, shared.ErrNotConfigured
	}

	hctx, cancel := t.httpContext(ctx)
	defer cancel()

	now := t.Now()
	tok, err := t.config.Exchange(hctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrTokenExchangeFailed, describe(err))
	}

	rec := models.NewTokenRecord(tok.AccessToken, tok.RefreshToken, lifetime(tok), now)

	s, err := t.sessions.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	s.Tokens = rec
	s.OAuthState = ""
	if err := t.sessions.Save(ctx, sid, s); err != nil {
		return nil, err
	}
	return rec, nil
}

// AccessToken returns a usable access token for sid, refreshing it first when it is about to expire.
//
// Any failure to produce a token is reported as [shared.ErrAuthRequired].
func (t *Tokens) AccessToken(ctx context.Context, sid string) (string, error) {
	if sid == "" {
		return "", shared.ErrAuthRequired
	}

	s, err := t.sessions.Load(ctx, sid)
	if err != nil {
		return "", err
	}

	switch Classify(s.Tokens, t.Now()) {
	case Unauthenticated:
		return "", shared.ErrAuthRequired
	case Valid:
		return s.Tokens.AccessToken, nil
	}

	// Waiters share this refresh, so it must outlive the caller that started it.
	rctx := context.WithoutCancel(ctx)
	v, err, _ := t.group.Do(sid, func() (any, error) {
		return t.refresh(rctx, sid)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// State reports the lifecycle state of sid without refreshing.
func (t *Tokens) State(ctx context.Context, sid string) State {
	if sid == "" {
		return Unauthenticated
	}
	s, err := t.sessions.Load(ctx, sid)
	if err != nil {
		return Unauthenticated
	}
	return Classify(s.Tokens, t.Now())
}

func (t *Tokens) refresh(ctx context.Context, sid string) (string, error) {
	// Another caller may have refreshed while this one waited.
	s, err := t.sessions.Load(ctx, sid)
	if err != nil {
		return "", err
	}
	switch Classify(s.Tokens, t.Now()) {
	case Unauthenticated:
		return "", shared.ErrAuthRequired
	case Valid:
		return s.Tokens.AccessToken, nil
	}

	old := s.Tokens
	if !t.configured() {
		return "", t.failed(sid, shared.ErrMissingCredentials)
	}
	if old.RefreshToken == "" {
		return "", t.failed(sid, shared.ErrNoRefreshToken)
	}

	hctx, cancel := t.httpContext(ctx)
	defer cancel()

	now := t.Now()
	src := t.config.TokenSource(hctx, &oauth2.Token{
		RefreshToken: old.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		return "", t.failed(sid, fmt.Errorf("%w: %s", shared.ErrRefreshFailed, describe(err)))
	}

	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = old.RefreshToken
	}
	s.Tokens = models.NewTokenRecord(tok.AccessToken, refreshToken, lifetime(tok), now)
	if err := t.sessions.Save(ctx, sid, s); err != nil {
		return "", err
	}

	if t.logger != nil {
		t.logger.Debug("refreshed spotify token", "expires_at", s.Tokens.Expiry().Format(time.RFC3339))
	}
	return s.Tokens.AccessToken, nil
}

func (t *Tokens) failed(sid string, cause error) error {
	if t.logger != nil {
		t.logger.Warn("spotify token refresh failed", "state", RefreshFailed, "error", cause)
	}
	return fmt.Errorf("%w: %v", shared.ErrAuthRequired, cause)
}

// lifetime reads expires_in from the raw token response.
func lifetime(tok *oauth2.Token) time.Duration {
	var secs int64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		secs = int64(v)
	case int64:
		secs = v
	case int:
		secs = int64(v)
	case json.Number:
		secs, _ = v.Int64()
	case string:
		secs, _ = strconv.ParseInt(v, 10, 64)
	}
	if secs <= 0 {
		return DefaultLifetime
	}
	return time.Duration(secs) * time.Second
}

// describe shortens token endpoint errors to their status and error code.
func describe(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		parts := []string{fmt.Sprintf("status %d", re.Response.StatusCode)}
		if re.ErrorCode != "" {
			parts = append(parts, re.ErrorCode)
		}
		return strings.Join(parts, " ")
	}
	return err.Error()
}
