// package server contains the middleware, router & handlers of the vinyl HTTP API
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, request ids, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Route binds a method & path pattern to a handler.
type Route struct {
	Method  string
	Path    string // [http.ServeMux] pattern, may contain {wildcards}
	Handler http.Handler
}

// Handler defines the interface for groups of HTTP endpoints.
// Implementations encapsulate their route definitions (auth flow, Spotify proxy, image proxy).
type Handler interface {
	Routes() []Route // Routes returns the endpoints this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and serve as the server's root handler.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers every route of a Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}
