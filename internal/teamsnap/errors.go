package teamsnap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"
)

// APIError is a non-2xx response from the TeamSnap API, surfaced with
// its status code and the message the server sent.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("teamsnap API returned status %d", e.StatusCode)
	}

	return fmt.Sprintf("teamsnap API returned status %d: %s", e.StatusCode, e.Message)
}

// AsAPIError returns the APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	ok := errors.As(err, &ae)

	return ae, ok
}

// WriteDisabledError is returned by the tool client when a mutating
// call is attempted in read-only mode. No HTTP request is issued.
type WriteDisabledError struct {
	Operation string
}

func (e *WriteDisabledError) Error() string {
	return fmt.Sprintf("write operations are disabled: %s rejected in read-only mode. "+
		"To enable writes set TEAMSNAP_READONLY=false and restart the server", e.Operation)
}

// IsWriteDisabled reports whether err is a read-only mode rejection.
func IsWriteDisabled(err error) bool {
	var we *WriteDisabledError
	return errors.As(err, &we)
}

// TimeoutError wraps a transport-level timeout. The caller may retry.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return "request timed out: " + e.Err.Error() }
func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTimeout reports whether err (or any error in its chain) is a
// TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// classifyTransportError wraps deadline and network timeouts in
// TimeoutError so callers can distinguish retryable failures.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Err: err}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Err: err}
	}

	return err
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}
