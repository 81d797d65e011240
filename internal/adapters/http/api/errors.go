package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrValidation = errors.New("invalid or missing parameter")

	// errServer is the only message a server error ever shows.
	errServer = errors.New("Server Error") //nolint:staticcheck // user-facing text
)
