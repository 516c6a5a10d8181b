package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/auth"
	"github.com/desertthunder/vinyl/internal/server"
	"github.com/desertthunder/vinyl/internal/services"
	"github.com/desertthunder/vinyl/internal/session"
	"github.com/desertthunder/vinyl/internal/shared"
	"github.com/desertthunder/vinyl/internal/store"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// stack is everything Serve builds from the config. Its parts live for the whole process.
type stack struct {
	handler http.Handler
	store   store.Store
	cleanup func() error
}

// build wires the session store, the OAuth components and the upstream clients into the router.
func build(ctx context.Context, config *shared.Config, logger *log.Logger) (*stack, error) {
	frontend, err := url.Parse(config.Frontend.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: frontend url: %v", shared.ErrInvalidConfig, err)
	}

	storeLogger := shared.WithLogger(logger, "component", "store")
	st, closeStore, err := store.Open(ctx, config.Store, storeLogger)
	if err != nil {
		return nil, err
	}

	if !config.Credentials.Spotify.Configured() {
		logger.Warn("spotify client credentials not configured, login is disabled")
	}

	httpClient := services.NewHTTPClient()
	tokenClient := &http.Client{Timeout: auth.TokenTimeout, Transport: httpClient.Transport}
	spotify := services.NewSpotifyClient(services.SpotifyBaseURL, httpClient)

	sessions := session.NewManager(st, frontend)
	broker := session.NewBroker(st, storeLogger)
	tokens := auth.NewTokens(config.Credentials.Spotify, sessions, tokenClient, logger)

	handler := server.NewRouter(server.Deps{
		Sessions: sessions,
		Flow:     auth.NewFlow(tokens, sessions, broker, logger),
		Tokens:   tokens,
		Spotify:  spotify,
		Images:   services.NewImageProxy(httpClient),
		Cache:    services.NewSearchCache(config.Cache.SearchTTL(), config.Cache.SearchCapacity),
		Limiter:  server.NewLimiter(config.Server.ImageRateLimit),
		Frontend: frontend,
		Logger:   logger,
	})

	cleanup := func() error {
		spotify.Close()
		tokenClient.CloseIdleConnections()
		return closeStore()
	}
	return &stack{handler: handler, store: st, cleanup: cleanup}, nil
}

// Serve runs the API until SIGINT or SIGTERM, then drains requests within the shutdown timeout.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	logger := shared.NewServerLogger(nil, config.Log)
	addr := config.Server.Addr()
	if a := cmd.String("addr"); a != "" {
		addr = a
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := build(ctx, config, logger)
	if err != nil {
		return err
	}
	app := server.New(addr, s.handler, s.cleanup, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(app.Run)
	g.Go(func() error {
		return store.RunJanitor(gctx, s.store, store.SweepInterval, shared.WithLogger(logger, "component", "janitor"))
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", config.Server.ShutdownTimeout())

		sctx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout())
		defer cancel()
		return app.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
