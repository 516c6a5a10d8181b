// Package server provides HTTP routing, middleware, and the handlers of the vinyl API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method patterns on an [http.ServeMux] and wraps the whole
// mux with its middleware, so CORS preflights and 404s pass through the same stack as routed requests.
//
// # Handler Interface
//
// Handlers implement [Handler] and return their [Route] table, keeping route definitions next to
// the code that serves them:
//   - [AuthHandler]: login redirect, OAuth callback, session status and logout
//   - [SpotifyHandler]: Web API proxy endpoints and the song listings
//   - [ImageHandler]: the rate limited album art proxy
//
// # Errors
//
// Handlers return sentinel errors from the shared package wrapped with %w. [StatusFor] maps them to a
// status code and a short detail, written as {"detail": "..."}. Upstream answers that are relayed
// keep the provider's status and body.
//
// # Lifecycle
//
// [NewRouter] wires the handlers from [Deps]. [App] owns the [http.Server]; [App.Shutdown] drains
// requests before closing the session store and the upstream connection pool.
package server
