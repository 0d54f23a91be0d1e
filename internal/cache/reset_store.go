package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrResetTokenInvalid is returned for unknown, expired or already used tokens
var ErrResetTokenInvalid = errors.New("invalid or expired reset token")

// ResetTokenStore keeps single-use password reset tokens and the per-email
// request throttle in redis.
type ResetTokenStore struct {
	helper     *CacheHelper
	tokenTTL   time.Duration
	rateWindow time.Duration
}

func NewResetTokenStore(helper *CacheHelper, tokenTTL, rateWindow time.Duration) *ResetTokenStore {
	return &ResetTokenStore{
		helper:     helper,
		tokenTTL:   tokenTTL,
		rateWindow: rateWindow,
	}
}

func limitKey(email string) string {
	return "limit:" + strings.ToLower(strings.TrimSpace(email))
}

func tokenKey(token string) string {
	return "token:" + token
}

// AcquireRateLimit claims the request window for email. It returns false
// when a previous request is still inside the window.
func (s *ResetTokenStore) AcquireRateLimit(ctx context.Context, email string) (bool, error) {
	ok, err := s.helper.SetNX(ctx, limitKey(email), "1", s.rateWindow)
	if err != nil {
		return false, fmt.Errorf("failed to acquire reset rate limit: %w", err)
	}
	return ok, nil
}

// RetryAfter reports how much of the request window for email remains. It is
// zero when no window is open.
func (s *ResetTokenStore) RetryAfter(ctx context.Context, email string) (time.Duration, error) {
	ttl, err := s.helper.TTL(ctx, limitKey(email))
	if err != nil {
		return 0, fmt.Errorf("failed to read reset rate limit: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// ReleaseRateLimit frees the window early, used when issuing the token fails
func (s *ResetTokenStore) ReleaseRateLimit(ctx context.Context, email string) {
	SafeDelete(ctx, s.helper, limitKey(email))
}

// SaveToken maps token to the user it resets
func (s *ResetTokenStore) SaveToken(ctx context.Context, token string, userID uint) error {
	if err := s.helper.SetString(ctx, tokenKey(token), strconv.FormatUint(uint64(userID), 10), s.tokenTTL); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// ConsumeToken atomically reads and deletes token. A second call with the
// same token returns ErrResetTokenInvalid.
func (s *ResetTokenStore) ConsumeToken(ctx context.Context, token string) (uint, error) {
	raw, err := s.helper.GetDel(ctx, tokenKey(token))
	if err != nil {
		if errors.Is(err, ErrCacheNotFound) {
			return 0, ErrResetTokenInvalid
		}
		return 0, fmt.Errorf("failed to consume reset token: %w", err)
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrResetTokenInvalid
	}
	return uint(id), nil
}
