package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/oauth2"
)

// EndpointError is a non-2xx response from the token endpoint.
type EndpointError struct {
	StatusCode  int
	Code        string // OAuth "error"
	Description string // OAuth "error_description"
}

func (e *EndpointError) Error() string {
	msg := fmt.Sprintf("token endpoint returned %d", e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += " (" + e.Description + ")"
	}
	return msg
}

// Permanent reports whether the response rejects the grant itself, so retrying cannot succeed.
func (e *EndpointError) Permanent() bool {
	return e.StatusCode == http.StatusBadRequest ||
		e.StatusCode == http.StatusUnauthorized ||
		e.Code == "invalid_grant"
}

// IsReauthRequired reports whether err means the stored session is gone and the user must authorize again.
func IsReauthRequired(err error) bool {
	return errors.Is(err, shared.ErrRefreshTokenExpired)
}

// IsTransient reports whether err is a retryable refresh failure that left stored tokens intact.
func IsTransient(err error) bool {
	return errors.Is(err, shared.ErrTransientRefresh)
}

// endpointError converts an [oauth2.RetrieveError] into an [EndpointError], passing other errors through.
func endpointError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}

	e := &EndpointError{Code: re.ErrorCode, Description: re.ErrorDescription}
	if re.Response != nil {
		e.StatusCode = re.Response.StatusCode
	}
	return e
}

// classifyRefreshError wraps err with [shared.ErrRefreshTokenExpired] or [shared.ErrTransientRefresh].
func classifyRefreshError(err error) error {
	var endpoint *EndpointError
	if errors.As(err, &endpoint) && endpoint.Permanent() {
		return fmt.Errorf("%w: %w", shared.ErrRefreshTokenExpired, err)
	}
	return fmt.Errorf("%w: %w", shared.ErrTransientRefresh, err)
}
