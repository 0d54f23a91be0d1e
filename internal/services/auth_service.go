package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/auth"
	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

type authService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	tokens    *auth.TokenManager
	hasher    *auth.PasswordHasher
}

func NewAuthService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, tokens *auth.TokenManager, hasher *auth.PasswordHasher) AuthService {
	return &authService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		tokens:    tokens,
		hasher:    hasher,
	}
}

// ===== REGISTRATION AND LOGIN =====

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	taken, err := s.repo.User().ExistsByUsername(ctx, nil, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	taken, err = s.repo.User().ExistsByEmail(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Description:  req.Description,
		Role:         models.RoleUser,
	}

	var resp *AuthResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.User().Create(ctx, tx, user); err != nil {
			if repositories.IsDuplicateError(err) {
				return errDuplicateAccount
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		var err error
		resp, err = s.issueSession(ctx, tx, user)
		return err
	})
	if errors.Is(err, errDuplicateAccount) {
		return nil, s.duplicateAccountError(ctx, username, email)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", user.Username)
	return resp, nil
}

// errDuplicateAccount marks a unique index violation on insert, after a
// concurrent registration passed the same availability checks
var errDuplicateAccount = errors.New("duplicate account")

// duplicateAccountError tells which unique field the committed row took
func (s *authService) duplicateAccountError(ctx context.Context, username, email string) error {
	if taken, err := s.repo.User().ExistsByUsername(ctx, nil, username); err == nil && taken {
		return ErrUsernameTaken
	}
	if taken, err := s.repo.User().ExistsByEmail(ctx, nil, email); err == nil && taken {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByUsername(ctx, nil, strings.TrimSpace(req.Username))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if user.Role == models.RoleBanned {
		return nil, ErrAccountBanned
	}

	resp, err := s.issueSession(ctx, nil, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return resp, nil
}

// issueSession signs both credentials and stores the refresh digest
func (s *authService) issueSession(ctx context.Context, tx *gorm.DB, user *models.User) (*AuthResponse, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, expiresAt, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: auth.HashToken(refresh),
		ExpiresAt: expiresAt.UTC(),
	}
	if err := s.repo.RefreshToken().Create(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         toUserResponse(user),
	}, nil
}

// ===== REFRESH AND LOGOUT =====

func (s *authService) Refresh(ctx context.Context, req *RefreshRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	claims, err := s.tokens.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	user, err := s.loadActiveStoredRefresh(ctx, claims.UserID, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: req.RefreshToken,
		User:         toUserResponse(user),
	}, nil
}

// Logout removes one refresh token from the user's set. Unknown tokens are
// accepted so logout stays idempotent.
func (s *authService) Logout(ctx context.Context, req *RefreshRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	claims, err := s.tokens.ParseRefreshToken(req.RefreshToken)
	if err != nil && !errors.Is(err, auth.ErrExpiredToken) {
		return ErrInvalidToken
	}

	removed, err := s.repo.RefreshToken().Delete(ctx, nil, auth.HashToken(req.RefreshToken))
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	s.logger.Info("User logged out", "user_id", claims.UserID, "revoked", removed)
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, actor *authz.Actor, req *ChangePasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if err := requireLogin(actor); err != nil {
		return err
	}

	user, err := s.repo.User().GetByID(ctx, nil, actor.UserID)
	if err != nil {
		return mapNotFound(err, ErrUserNotFound)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, req.OldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongPassword
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.User().UpdatePassword(ctx, tx, user.ID, hash); err != nil {
			return err
		}
		return s.repo.RefreshToken().DeleteByUser(ctx, tx, user.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.logger.Info("Password changed", "user_id", user.ID)
	return nil
}

// ===== SESSION RESOLUTION =====

// ResolveSession turns the presented credentials into an actor. An expired
// access token is renewed only when the refresh token belongs to the same
// user and is still in that user's stored set.
func (s *authService) ResolveSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	if accessToken == "" {
		return nil, ErrMissingCredentials
	}

	claims, err := s.tokens.ParseAccessToken(accessToken)
	switch {
	case err == nil:
		user, err := s.loadActor(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		return &Session{Actor: authz.NewActor(user)}, nil

	case errors.Is(err, auth.ErrExpiredToken):
		return s.renewSession(ctx, claims, refreshToken)

	default:
		return nil, ErrInvalidToken
	}
}

func (s *authService) renewSession(ctx context.Context, access *auth.Claims, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrTokenExpired
	}

	refresh, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if refresh.UserID != access.UserID {
		return nil, ErrInvalidToken
	}

	if _, err := s.loadActiveStoredRefresh(ctx, refresh.UserID, refreshToken); err != nil {
		return nil, err
	}

	user, err := s.loadActor(ctx, refresh.UserID)
	if err != nil {
		return nil, err
	}

	renewed, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	s.logger.Debug("Access token renewed", "user_id", user.ID)
	return &Session{Actor: authz.NewActor(user), RenewedAccessToken: renewed}, nil
}

// loadActiveStoredRefresh checks the refresh digest is in the user's set and
// returns the user
func (s *authService) loadActiveStoredRefresh(ctx context.Context, userID uint, refreshToken string) (*models.User, error) {
	exists, err := s.repo.RefreshToken().Exists(ctx, nil, userID, auth.HashToken(refreshToken), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to check refresh token: %w", err)
	}
	if !exists {
		return nil, ErrRefreshRevoked
	}

	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Role == models.RoleBanned {
		return nil, ErrAccountBanned
	}
	return user, nil
}

func (s *authService) loadActor(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.User().GetByIDWithEnrollments(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Role == models.RoleBanned {
		return nil, ErrAccountBanned
	}
	return user, nil
}
