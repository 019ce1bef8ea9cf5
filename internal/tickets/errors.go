package tickets

import (
	"errors"
	"fmt"
	"time"
)

// Layer identifies which transport produced an error.
type Layer string

const (
	LayerAPI      Layer = "api"
	LayerScraping Layer = "scraping"
)

// Source is embedded in every platform error.
type Source struct {
	Platform string
	Layer    Layer
}

func (s Source) prefix() string {
	return fmt.Sprintf("%s (%s)", s.Platform, s.Layer)
}

// PlatformError is the generic failure carrying the upstream status and body.
type PlatformError struct {
	Source
	Status int
	Body   string
	Err    error
}

func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.prefix(), e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.prefix(), e.Status)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// RateLimitError means the upstream asked us to slow down.
type RateLimitError struct {
	Source
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.prefix(), e.RetryAfter)
}

// TimeoutError wraps transport level failures (timeouts, refused connections, ...).
type TimeoutError struct {
	Source
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.prefix(), e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// BotDetectedError means the response was a captcha, challenge or block page.
type BotDetectedError struct {
	Source
	Status  int
	Pattern string
}

func (e *BotDetectedError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("%s: bot detection triggered (status %d, matched %q)", e.prefix(), e.Status, e.Pattern)
	}
	return fmt.Sprintf("%s: bot detection triggered (status %d)", e.prefix(), e.Status)
}

// AuthError is returned for 401 and 403 responses of an API.
type AuthError struct {
	Source
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed with status %d", e.prefix(), e.Status)
}

// NotFoundError is returned for 404 responses of an API.
type NotFoundError struct {
	Source
	Endpoint string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: resource not found: %s", e.prefix(), e.Endpoint)
}

// ServerError is returned for 5xx responses of an API.
type ServerError struct {
	Source
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server error %d", e.prefix(), e.Status)
}

// IsRetryable reports whether the API retry loop should try again after err.
// Auth and not found failures will not change on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return false
	}
	var bot *BotDetectedError
	return !errors.As(err, &bot)
}

// RetryAfter extracts the retry-after duration of a RateLimitError, ok is
// false for any other error.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsBotDetected reports whether err is (or wraps) a BotDetectedError.
func IsBotDetected(err error) bool {
	var bot *BotDetectedError
	return errors.As(err, &bot)
}
