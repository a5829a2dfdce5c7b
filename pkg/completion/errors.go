package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 64 * 1024

// ServerError is returned when the upstream answers with a non-success status.
type ServerError struct {
	StatusCode int

	// Body is the error detail extracted from the response body: compacted
	// JSON when the body is JSON, trimmed text otherwise.
	Body string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API request failed with status: %d", e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status: %d - %s", e.StatusCode, e.Body)
}

// TransportError wraps any network or body read failure other than an abort.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("completion transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports a payload that failed structured parsing. Inside an
// event stream it is logged and skipped.
type ParseError struct {
	Data string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing completion payload %q: %v", truncate(e.Data, 120), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// isAbort reports whether err is the result of the caller cancelling ctx.
// Deadline expiry is not an abort.
func isAbort(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
}

// errorDetails extracts a printable detail from an error response body.
func errorDetails(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var compact bytes.Buffer
	if json.Valid(trimmed) && json.Compact(&compact, trimmed) == nil {
		return compact.String()
	}
	return strings.TrimSpace(string(trimmed))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
