// Package source provides the document origins for both corpora and the
// helpers shared by them: path layouts, rate-limit errors, the fallback
// chain and the cached commit-date resolver.
package source

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"ccdsync/internal/domain"
)

// RateLimitError indicates a remote source refused further requests.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Source     string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Source, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match domain.ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == domain.ErrRateLimited
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(source string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Source:     source,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// ParseRateLimitReset converts an X-RateLimit-Reset epoch header into the
// number of seconds left until the reset. Returns 0 when unusable.
func ParseRateLimitReset(val string, now time.Time) int {
	epoch, err := strconv.ParseInt(val, 10, 64)
	if err != nil || epoch <= 0 {
		return 0
	}
	secs := int(time.Unix(epoch, 0).Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

// IsRateLimited reports whether err is or wraps a rate limit.
func IsRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited)
}
