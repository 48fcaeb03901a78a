package google

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var (
	// ErrNotAuthenticated indicates that no usable credential exists. Either the
	// consent flow never completed or the stored token expired and could not
	// be refreshed.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoCredential is returned by a store that holds no record.
	ErrNoCredential = errors.New("no stored credential")

	// ErrNotFound indicates the requested task, event or container does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrThrottled is returned when a call gave up waiting on the local
	// upstream rate limiter.
	ErrThrottled = errors.New("upstream rate limit wait aborted")

	// ErrInvalidInput is wrapped by draft and patch validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// ExchangeError is returned when an authorization code cannot be exchanged
// for tokens (invalid, expired or already used).
type ExchangeError struct {
	Err error
}

func (e *ExchangeError) Error() string {
	return "authorization code exchange failed: " + providerMessage(e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// UpstreamError wraps a failed Google API call. Code is the HTTP status
// reported by Google, or 0 when the request never got a response.
type UpstreamError struct {
	Op   string
	Code int
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// WrapAPIError classifies an error returned by a Google API call.
// 404 and 410 become ErrNotFound, everything else an *UpstreamError.
func WrapAPIError(op string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return &UpstreamError{Op: op, Code: gerr.Code, Err: err}
	}

	return &UpstreamError{Op: op, Err: err}
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return false
}

// IsRateLimited returns true if Google rejected the call with 429.
func IsRateLimited(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return false
}

// providerMessage extracts the most useful text from a token endpoint error.
func providerMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.ErrorCode != "" {
		if rerr.ErrorDescription != "" {
			return rerr.ErrorCode + ": " + rerr.ErrorDescription
		}
		return rerr.ErrorCode
	}
	return err.Error()
}
