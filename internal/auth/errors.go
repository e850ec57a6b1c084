package auth

import (
	"errors"
	"fmt"
)

// Authentication state errors surfaced by EnsureValidToken.
var (
	// ErrAuthenticationRequired means no usable token exists and the
	// interactive authorization flow must be run.
	ErrAuthenticationRequired = errors.New("authentication required: run the authorization flow first")

	// ErrAuthenticationExpired means the stored token expired and the
	// refresh exchange failed, so interactive re-authorization is needed.
	ErrAuthenticationExpired = errors.New("authentication expired: re-run the authorization flow")
)

// PersistenceError wraps a token file read or write failure. It is
// fatal to the calling operation and never retried.
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("token file %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AuthorizationError wraps a failed authorization-code exchange. The
// code was invalid or expired, or the token endpoint was unreachable;
// the user must restart the interactive flow.
type AuthorizationError struct {
	Err error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed: %v", e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }
