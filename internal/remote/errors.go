package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBaseURL is returned when the configured base URL cannot be used.
	ErrInvalidBaseURL = errors.New("invalid base URL: expected http(s)://host[/path]")

	// ErrInvalidProxyURL is returned when the proxy URL has an unsupported scheme.
	ErrInvalidProxyURL = errors.New("invalid proxy URL: expected http, https or socks5 scheme")

	// ErrTooManyRedirects is returned when a tiny URL does not settle within maxRedirects hops.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// FetchError is returned for transport failures, non-2xx responses and
// responses that cannot be decoded. StatusCode is zero for transport and
// decoding failures.
type FetchError struct {
	// StatusCode is the HTTP status, or zero.
	StatusCode int

	// URL is the requested URL.
	URL string

	// Message describes the failure.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a FetchError with status 404.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == 404
}
