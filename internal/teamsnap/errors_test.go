package teamsnap

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Message(t *testing.T) {
	withMsg := &APIError{StatusCode: 404, Message: "not found"}
	assert.Equal(t, "teamsnap API returned status 404: not found", withMsg.Error())

	bare := &APIError{StatusCode: 500}
	assert.Equal(t, "teamsnap API returned status 500", bare.Error())
}

func TestAsAPIError_Wrapped(t *testing.T) {
	inner := &APIError{StatusCode: 403, Message: "forbidden"}
	wrapped := fmt.Errorf("listing teams: %w", inner)

	ae, ok := AsAPIError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 403, ae.StatusCode)

	_, ok = AsAPIError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestClassifyTransportError(t *testing.T) {
	deadline := fmt.Errorf("sending GET /me: %w", context.DeadlineExceeded)
	assert.True(t, IsTimeout(classifyTransportError(deadline)))

	plain := fmt.Errorf("connection refused")
	assert.False(t, IsTimeout(classifyTransportError(plain)))
}

func TestSanitizeResponseBody(t *testing.T) {
	assert.Equal(t, "plain text", sanitizeResponseBody([]byte("plain text")))
	assert.Equal(t, "a?b", sanitizeResponseBody([]byte("a\x00b")))
	assert.Equal(t, "line\nbreak", sanitizeResponseBody([]byte("line\nbreak")))

	long := strings.Repeat("x", 1000)
	assert.Len(t, sanitizeResponseBody([]byte(long)), 256)
}
