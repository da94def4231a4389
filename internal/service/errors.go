package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoPendingReset   = errors.New("no reset request found")
	ErrResetCodeExpired = errors.New("reset code expired")
	ErrTooManyAttempts  = errors.New("too many failed attempts")
	ErrInvalidResetCode = errors.New("invalid reset code")
	ErrDeliveryFailed   = errors.New("reset code delivery failed")

	ErrRateLimited = errors.New("rate limit exceeded")
)

// RateLimitError matches ErrRateLimited and tells the caller when to retry.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
