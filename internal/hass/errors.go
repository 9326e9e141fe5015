package hass

import "errors"

// Domain-specific errors for Home Assistant REST operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrRequestFailed is returned when a request cannot be delivered.
	ErrRequestFailed = errors.New("hass: request failed")

	// ErrUnauthorized is returned when the access token is rejected.
	ErrUnauthorized = errors.New("hass: unauthorized (check access token)")

	// ErrUnexpectedStatus is returned for any other non-2xx response.
	ErrUnexpectedStatus = errors.New("hass: unexpected response status")
)
