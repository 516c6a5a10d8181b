package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/services"
	"github.com/desertthunder/vinyl/internal/session"
	"github.com/desertthunder/vinyl/internal/shared"
	"golang.org/x/time/rate"
)

// APIName is reported by GET /.
const APIName = "Vinyl Records API"

// Deps holds the process-wide components the handlers share. They are built once at startup.
type Deps struct {
	Sessions *session.Manager
	Flow     LoginFlow
	Tokens   TokenSource
	Spotify  services.Spotify
	Images   ImageFetcher
	Cache    *services.SearchCache
	Limiter  *rate.Limiter
	Frontend *url.URL
	Logger   *log.Logger
}

// NewRouter wires every endpoint behind the request id, logging, recovery & CORS middleware.
func NewRouter(d Deps) *BasicRouter {
	if d.Logger == nil {
		d.Logger = shared.NewLogger(io.Discard)
	}

	redirect := "/"
	if d.Frontend != nil && d.Frontend.String() != "" {
		redirect = d.Frontend.String()
	}

	r := NewBasicRouter()
	r.Use(RequestID, Logger(d.Logger), Recover(d.Logger), CORS(Origin(d.Frontend)))

	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"name": APIName})
	}))
	r.Handle(http.MethodGet, "/api/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	r.Handler(NewAuthHandler(d.Flow, d.Sessions, redirect, d.Logger))
	r.Handler(NewSpotifyHandler(d.Spotify, d.Tokens, d.Sessions, d.Cache, d.Logger))
	r.Handler(NewImageHandler(d.Images, d.Limiter, d.Logger))
	return r
}

// App owns the HTTP server and the cleanup of the components behind it.
type App struct {
	httpServer *http.Server
	cleanup    func() error
	logger     *log.Logger
}

// New creates an App listening on addr. cleanup runs after the server has drained.
func New(addr string, handler http.Handler, cleanup func() error, logger *log.Logger) *App {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &App{httpServer: server, cleanup: cleanup, logger: logger}
}

// Run serves until Shutdown is called. A graceful shutdown is not reported as an error.
func (a *App) Run() error {
	a.logger.Info("listening", "addr", a.httpServer.Addr)
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve is Run on an existing listener.
func (a *App) Serve(l net.Listener) error {
	if err := a.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the shared components.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.httpServer.Shutdown(ctx)
	if a.cleanup != nil {
		err = errors.Join(err, a.cleanup())
	}
	return err
}
