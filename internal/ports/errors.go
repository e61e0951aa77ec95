package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these so callers can
// branch with errors.Is without knowing which provider served the request.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Account-data provider errors
	ErrUpstreamUnavailable  = errors.New("account data provider is unavailable")
	ErrAuthenticationFailed = errors.New("account data provider authentication failed (check API token)")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAccountNotDeployed   = errors.New("trading account is not deployed or not synchronized")
	ErrUnsupportedPlatform  = errors.New("unsupported trading platform")

	// Session errors
	ErrStaleResponse = errors.New("response superseded by a newer request")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrQueryFailed    = errors.New("database query failed")
)
