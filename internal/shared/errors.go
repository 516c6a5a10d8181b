package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrNotConfigured      = fmt.Errorf("spotify client credentials not configured")

	// Authentication errors
	ErrAuthRequired        = fmt.Errorf("not authenticated with spotify")
	ErrInvalidCallback     = fmt.Errorf("invalid spotify oauth state or code")
	ErrTokenExchangeFailed = fmt.Errorf("failed to obtain spotify tokens")
	ErrRefreshFailed       = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken      = fmt.Errorf("no refresh token available")

	// API and service errors
	ErrUpstream           = fmt.Errorf("upstream request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrImageFetch         = fmt.Errorf("failed to fetch image")
	ErrRateLimited        = fmt.Errorf("too many requests")

	// Input validation errors
	ErrBadRequest      = fmt.Errorf("bad request")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
