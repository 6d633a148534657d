package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var ErrInvalidPollConfig = errors.New("invalid poll configuration")

type DecodeErrorKind int

const (
	DecodeErrorMissingField DecodeErrorKind = iota + 1
	DecodeErrorTypeMismatch
	DecodeErrorOutOfRange
	DecodeErrorMalformed
)

func (kind DecodeErrorKind) String() string {
	switch kind {
	case DecodeErrorMissingField:
		return "missing field"
	case DecodeErrorTypeMismatch:
		return "type mismatch"
	case DecodeErrorOutOfRange:
		return "out of range"
	case DecodeErrorMalformed:
		return "malformed body"
	default:
		return "unknown"
	}
}

// DecodeError is returned when a response body does not match the field
// contract of the endpoint variant it was read from.
type DecodeError struct {
	Kind  DecodeErrorKind
	Field Field
	// Key is the JSON key the field is expected under.
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Key)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return "failed to decode reading: " + msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type ErrorKind int

const (
	ErrorKindTransport ErrorKind = iota + 1
	ErrorKindHTTP
	ErrorKindDecode
)

func (kind ErrorKind) String() string {
	switch kind {
	case ErrorKindTransport:
		return "transport"
	case ErrorKindHTTP:
		return "http"
	case ErrorKindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// ClientError is the error returned by every Client request.
//
// Transport errors mean the device could not be reached or the exchange was
// cut short. HTTP errors mean the device answered with a non-200 status.
// Decode errors wrap a *DecodeError.
type ClientError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *ClientError) Error() string {
	switch e.Kind {
	case ErrorKindHTTP:
		return fmt.Sprintf("request to %s failed: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	case ErrorKindDecode:
		return fmt.Sprintf("invalid response from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("failed to reach %s: %v", e.URL, e.Err)
	}
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Timeout reports whether a transport error was caused by a timeout.
func (e *ClientError) Timeout() bool {
	if e.Kind != ErrorKindTransport {
		return false
	}

	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Transient reports whether the same request is expected to succeed later
// without any change on the caller's side.
func (e *ClientError) Transient() bool {
	switch e.Kind {
	case ErrorKindTransport:
		return !errors.Is(e.Err, context.Canceled)
	case ErrorKindHTTP:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// IsTransient reports whether err is a *ClientError that is worth retrying.
func IsTransient(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Transient()
}
