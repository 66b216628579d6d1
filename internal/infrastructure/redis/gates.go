package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hydrazin60/waterManagment-server/internal/domain"
)

// Key prefixes for the per-identifier ephemeral state. The identifier is the
// email or phone string the OTP was requested for.
const (
	codeKeyPrefix         = "otp:"
	cooldownKeyPrefix     = "otp_cooldown:"
	attemptsKeyPrefix     = "otp_attempts:"
	hardLockKeyPrefix     = "otp_lock:"
	requestCountKeyPrefix = "otp_request_count:"
	spamLockKeyPrefix     = "otp_spam_lock:"
)

const (
	codeTTL          = 5 * time.Minute
	cooldownTTL      = time.Minute
	attemptsTTL      = 5 * time.Minute
	requestWindowTTL = time.Hour
	spamLockTTL      = time.Hour
	hardLockTTL      = 30 * time.Minute

	maxFailedAttempts    = 3
	maxRequestsPerWindow = 3

	// verifyRetries bounds the WATCH retry loop when a concurrent verify for
	// the same identifier invalidates the transaction.
	verifyRetries = 4
)

// GateStore is the keyed OTP state machine. One instance of state exists per
// identifier; every transition is atomic with respect to that identifier's
// keys so racing requests served by independent processes stay serializable.
type GateStore struct {
	rdb *goredis.Client
}

func NewGateStore(rdb *goredis.Client) *GateStore {
	return &GateStore{rdb: rdb}
}

// CheckRestrictions fails when any blocking gate is live for the identifier.
// Gates are reported in severity order: hard lock, spam lock, cooldown.
func (s *GateStore) CheckRestrictions(ctx context.Context, identifier string) error {
	gates := []struct {
		key        string
		gate       string
		retryAfter time.Duration
	}{
		{hardLockKeyPrefix + identifier, domain.GateHardLock, hardLockTTL},
		{spamLockKeyPrefix + identifier, domain.GateSpamLock, spamLockTTL},
		{cooldownKeyPrefix + identifier, domain.GateCooldown, cooldownTTL},
	}
	for _, g := range gates {
		n, err := s.rdb.Exists(ctx, g.key).Result()
		if err != nil {
			return fmt.Errorf("gate store exists %q: %w", g.gate, err)
		}
		if n > 0 {
			return &domain.RateLimitError{Gate: g.gate, RetryAfter: g.retryAfter}
		}
	}
	return nil
}

// TrackRequest counts an issuance request inside the rolling 1-hour window.
// The increment is a single INCR so concurrent requests cannot both observe
// the same prior count. Once the window budget is exceeded the spam lock is
// set and the request fails.
func (s *GateStore) TrackRequest(ctx context.Context, identifier string) error {
	countKey := requestCountKeyPrefix + identifier

	count, err := s.rdb.Incr(ctx, countKey).Result()
	if err != nil {
		return fmt.Errorf("gate store incr request count: %w", err)
	}
	// EXPIRE NX on every increment: attaches the window on the first request
	// and repairs a counter orphaned by a crash between INCR and EXPIRE, so
	// no identifier can accumulate requests forever.
	if err := s.rdb.ExpireNX(ctx, countKey, requestWindowTTL).Err(); err != nil {
		return fmt.Errorf("gate store expire request count: %w", err)
	}
	if count > maxRequestsPerWindow {
		if err := s.rdb.Set(ctx, spamLockKeyPrefix+identifier, "locked", spamLockTTL).Err(); err != nil {
			return fmt.Errorf("gate store set spam lock: %w", err)
		}
		return &domain.RateLimitError{Gate: domain.GateSpamLock, RetryAfter: spamLockTTL}
	}
	return nil
}

// Issue stores the code and starts the 1-minute cooldown. A new code always
// supersedes any prior one for the identifier; both writes run in one
// transaction so no observer sees a fresh code without its cooldown.
func (s *GateStore) Issue(ctx context.Context, identifier, code string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, codeKeyPrefix+identifier, code, codeTTL)
		pipe.Set(ctx, cooldownKeyPrefix+identifier, "true", cooldownTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("gate store issue: %w", err)
	}
	return nil
}

// Verify checks the candidate against the live code. On a match it erases the
// code and the attempt counter. On a mismatch it escalates the attempt counter
// and, on the third failure, replaces all state with a 30-minute hard lock.
// The whole transition runs under WATCH so two racing verifies cannot both
// observe the same prior failure count.
func (s *GateStore) Verify(ctx context.Context, identifier, candidate string) error {
	codeKey := codeKeyPrefix + identifier
	attemptsKey := attemptsKeyPrefix + identifier

	for i := 0; i < verifyRetries; i++ {
		err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			stored, err := tx.Get(ctx, codeKey).Result()
			if errors.Is(err, goredis.Nil) {
				return fmt.Errorf("OTP expired or not found, please request a new OTP: %w", domain.ErrNotFound)
			}
			if err != nil {
				return err
			}

			if strings.TrimSpace(stored) != strings.TrimSpace(candidate) {
				attempts, err := tx.Get(ctx, attemptsKey).Int()
				if err != nil && !errors.Is(err, goredis.Nil) {
					return err
				}
				attempts++

				if attempts >= maxFailedAttempts {
					_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
						pipe.Del(ctx, codeKey, attemptsKey)
						pipe.Set(ctx, hardLockKeyPrefix+identifier, "locked", hardLockTTL)
						return nil
					})
					if err != nil {
						return err
					}
					return &domain.RateLimitError{Gate: domain.GateHardLock, RetryAfter: hardLockTTL}
				}

				_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
					pipe.Set(ctx, attemptsKey, attempts, attemptsTTL)
					return nil
				})
				if err != nil {
					return err
				}
				return fmt.Errorf("invalid OTP, %d attempts remaining: %w", maxFailedAttempts-attempts, domain.ErrBadRequest)
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Del(ctx, codeKey, attemptsKey)
				return nil
			})
			return err
		}, codeKey, attemptsKey)

		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound),
				errors.Is(err, domain.ErrBadRequest),
				errors.Is(err, domain.ErrRateLimited):
				return err
			default:
				return fmt.Errorf("gate store verify: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("OTP verification contended, please retry: %w", domain.ErrServer)
}
