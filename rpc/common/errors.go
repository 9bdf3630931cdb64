package common

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// Sentinel errors
// --------------------------------------------------------------------------

var (
	// ErrNoAvailableServer is returned if the client has no server configured
	ErrNoAvailableServer = errors.New("no server available")

	// ErrDigestMismatch is returned if blob content does not match its digest.
	// Nothing is stored in this case.
	ErrDigestMismatch = errors.New("blob digest mismatch")

	// ErrDigestNotFound is returned by Get for unknown blobs
	ErrDigestNotFound = errors.New("blob not found")

	// ErrBlobsDisabled is returned if the server does not serve blobs
	ErrBlobsDisabled = errors.New("blobs are disabled on the server")

	// ErrInvalidDigest is returned for digests that are not 40 lowercase hex chars
	ErrInvalidDigest = errors.New("invalid blob digest")

	// ErrMalformedResponse is returned if a successful response cannot be decoded.
	// The request is retried on another node.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrConnectionClosed is returned by every operation on a closed connection
	ErrConnectionClosed error = &ProgrammingError{Message: "Connection closed"}
)

// --------------------------------------------------------------------------
// ConnectionError
// --------------------------------------------------------------------------

// ConnectionError is returned once the retry budget is exhausted without a
// node answering. Last is the error of the final attempt.
type ConnectionError struct {
	Last error
}

func (e *ConnectionError) Error() string {
	if e.Last == nil {
		return "no server reachable"
	}
	return fmt.Sprintf("no server reachable: %v", e.Last)
}

func (e *ConnectionError) Unwrap() error {
	return e.Last
}

// --------------------------------------------------------------------------
// ProgrammingError
// --------------------------------------------------------------------------

// ProgrammingError reports a defect of the request itself (invalid SQL,
// missing table, use of a closed connection). It is never retried.
type ProgrammingError struct {
	Message string
	Err     error
}

func (e *ProgrammingError) Error() string {
	return e.Message
}

func (e *ProgrammingError) Unwrap() error {
	return e.Err
}

// NewProgrammingError creates a ProgrammingError with a formatted message
func NewProgrammingError(format string, args ...interface{}) *ProgrammingError {
	return &ProgrammingError{Message: fmt.Sprintf(format, args...)}
}

// --------------------------------------------------------------------------
// StatusError
// --------------------------------------------------------------------------

// StatusError is an HTTP response with an error status. Code and Message
// are taken from the CrateDB error body if there is one.
type StatusError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d (%s)", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Code != 0 {
		return fmt.Sprintf("http status %d: %d %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
}

// --------------------------------------------------------------------------
// TransportError
// --------------------------------------------------------------------------

// TransportError is a failed HTTP call (no response received). Err is kept
// as returned by net/http, usually a *url.Error.
type TransportError struct {
	Node   string
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s on %s: %v", e.Method, e.Path, e.Node, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call failed because a timeout expired
func (e *TransportError) Timeout() bool {
	var urlErr *url.Error
	if errors.As(e.Err, &urlErr) {
		return urlErr.Timeout()
	}
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) {
		return t.Timeout()
	}
	return false
}
