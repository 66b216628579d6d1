package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrRateLimited    = errors.New("rate limited")
	ErrDeliveryFailed = errors.New("delivery failed")
	ErrServer         = errors.New("internal error")
)

// Gate names carried by RateLimitError so callers can tell which OTP gate fired.
const (
	GateCooldown = "cooldown"
	GateSpamLock = "spam"
	GateHardLock = "locked"
)

// RateLimitError reports which ephemeral gate blocked the request and how long
// the caller must wait before retrying.
type RateLimitError struct {
	Gate       string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	switch e.Gate {
	case GateHardLock:
		return "account is locked due to multiple failed attempts, try again after 30 minutes"
	case GateSpamLock:
		return "too many OTP requests, please wait 1 hour before trying again"
	case GateCooldown:
		return "too many OTP requests, please wait 1 minute before trying again"
	}
	return fmt.Sprintf("rate limited (%s)", e.Gate)
}

// Is lets errors.Is(err, ErrRateLimited) match while keeping the gate detail.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }
