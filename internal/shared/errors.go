package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrCredentialsRequired = fmt.Errorf("client credentials are required")
	ErrInvalidRedirect     = fmt.Errorf("invalid redirect URL")
	ErrAuthorizationDenied = fmt.Errorf("authorization denied")
	ErrStateMismatch       = fmt.Errorf("state parameter mismatch")
	ErrTokenExchangeFailed = fmt.Errorf("token exchange failed")
	ErrRefreshTokenExpired = fmt.Errorf("refresh token expired, please reconnect")
	ErrTransientRefresh    = fmt.Errorf("token refresh temporarily failed")
	ErrNotAuthenticated    = fmt.Errorf("not authenticated")
	ErrTimeout             = fmt.Errorf("operation timed out")

	// Persistence errors
	ErrStorage = fmt.Errorf("storage operation failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNoActiveDevice     = fmt.Errorf("no active Spotify device found, start playing music on Spotify first")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
