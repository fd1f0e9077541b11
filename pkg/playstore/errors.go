package playstore

import (
	"fmt"

	"github.com/calmisland/go-errors"
)

var (
	// ErrNotBooted is returned by the lookup calls before Boot succeeded
	ErrNotBooted = errors.New("play store client has not been booted")
	// ErrAlreadyBooted is returned by Boot on a client that is already booted
	ErrAlreadyBooted = errors.New("play store client has already been booted")
	// ErrNotAuthorized is returned by TokenAuthorizer.Token before a token was fetched
	ErrNotAuthorized = errors.New("no access token has been fetched")
	// ErrInvalidArgument is returned when a lookup parameter is empty
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid play store client configuration")
	// ErrUnsupportedKey is returned when key material does not hold an RSA private key
	ErrUnsupportedKey = errors.New("unsupported signing key")
)

// AuthorizationError is returned when the identity provider did not issue an access token.
type AuthorizationError struct {
	// StatusCode is the HTTP status of the token endpoint, zero when no response was received.
	StatusCode int
	// Code is the OAuth2 error code, e.g. invalid_grant.
	Code string
	// Description is the provider's error_description.
	Description string
	// Body is the raw response body.
	Body []byte
	// Err is the underlying cause for signing or transport failures.
	Err error
}

func (e *AuthorizationError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("authorization failed: %v", e.Err)
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("authorization failed (%d): %s: %s", e.StatusCode, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("authorization failed (%d): %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("authorization failed (%d): %s", e.StatusCode, string(e.Body))
	}
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}
