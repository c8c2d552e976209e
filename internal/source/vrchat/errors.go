package vrchat

import (
	"errors"
	"fmt"
	"net/http"
)

// ConnectionError reports that a Client could not be constructed, for
// example because the base URL is malformed.
type ConnectionError struct {
	BaseURL string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.BaseURL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RequestError reports a failed API call: a transport failure
// (StatusCode is 0), a non-2xx response, or an undecodable body.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the server-supplied error text, when there was one.
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.Path, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// ParseError reports that a nested payload, such as the details of a
// notification, could not be decoded or encoded.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsRequestError reports whether err (or any error in its chain) is a
// RequestError.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// IsParseError reports whether err (or any error in its chain) is a
// ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

// IsAuthError reports whether err is a RequestError caused by a 401
// response, meaning the credentials or API key were rejected.
func IsAuthError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusUnauthorized
}
