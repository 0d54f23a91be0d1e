package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/auth"
	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

const resetMailTimeout = 30 * time.Second

type passwordResetService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	store     *cache.ResetTokenStore
	hasher    *auth.PasswordHasher
	sender    mailer.Sender
	config    config.PasswordResetConfig
}

func NewPasswordResetService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, store *cache.ResetTokenStore, hasher *auth.PasswordHasher, sender mailer.Sender, cfg config.PasswordResetConfig) PasswordResetService {
	return &passwordResetService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		store:     store,
		hasher:    hasher,
		sender:    sender,
		config:    cfg,
	}
}

// RequestReset issues a single-use token for the account behind email and
// mails the reset link. One request per email is accepted per rate window.
func (s *passwordResetService) RequestReset(ctx context.Context, req *PasswordResetRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.repo.User().GetByEmail(ctx, nil, email)
	if err != nil {
		return mapNotFound(err, ErrUserNotFound)
	}

	acquired, err := s.store.AcquireRateLimit(ctx, email)
	if err != nil {
		s.logger.Error("Reset rate limit unavailable", "user_id", user.ID, "error", err)
		return ErrCacheUnavailable
	}
	if !acquired {
		retryAfter, err := s.store.RetryAfter(ctx, email)
		if err != nil {
			s.logger.Warn("Failed to read reset rate limit window", "user_id", user.ID, "error", err)
		}
		return &RateLimitError{RetryAfter: retryAfter}
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		s.store.ReleaseRateLimit(ctx, email)
		return err
	}
	if err := s.store.SaveToken(ctx, token, user.ID); err != nil {
		s.store.ReleaseRateLimit(ctx, email)
		s.logger.Error("Failed to store reset token", "user_id", user.ID, "error", err)
		return ErrCacheUnavailable
	}

	msg, err := mailer.ResetPasswordMessage(user.Email, mailer.ResetPasswordData{
		Username:  user.Username,
		Link:      s.resetLink(token),
		ExpiresIn: s.config.TokenTTL.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to render reset mail: %w", err)
	}

	// The response does not wait for delivery
	go func(userID uint) {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetMailTimeout)
		defer cancel()
		if err := s.sender.Send(sendCtx, msg); err != nil {
			s.logger.Error("Failed to send reset mail", "user_id", userID, "error", err)
		}
	}(user.ID)

	s.logger.Info("Password reset requested", "user_id", user.ID)
	return nil
}

func (s *passwordResetService) resetLink(token string) string {
	base := strings.TrimRight(s.config.FrontendURL, "/")
	return base + "/reset-password?token=" + url.QueryEscape(token)
}

// ResetPassword consumes token and sets the new password. Every stored
// refresh token of the user is revoked.
func (s *passwordResetService) ResetPassword(ctx context.Context, req *PasswordResetConfirmRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	userID, err := s.store.ConsumeToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, cache.ErrResetTokenInvalid) {
			return ErrResetTokenInvalid
		}
		s.logger.Error("Failed to consume reset token", "error", err)
		return ErrCacheUnavailable
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.User().UpdatePassword(ctx, tx, userID, hash); err != nil {
			return err
		}
		return s.repo.RefreshToken().DeleteByUser(ctx, tx, userID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.logger.Info("Password reset completed", "user_id", userID)
	return nil
}
