package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// TokenType separates access credentials from refresh credentials
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims JWT custom claims
type Claims struct {
	UserID   uint      `json:"uid"`
	Username string    `json:"username,omitempty"`
	Role     string    `json:"role,omitempty"`
	Type     TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies the two credential tiers
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
}

// WithClock replaces the time source, used by tests to age tokens
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	clone := *m
	clone.now = now
	return &clone
}

func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// IssueAccessToken signs a short-lived credential carrying the user's role
func (m *TokenManager) IssueAccessToken(user *models.User) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		Type:     TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   fmt.Sprint(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.accessSecret)
}

// IssueRefreshToken signs a long-lived credential. The jti keeps every
// issued token distinct so each one can be revoked on its own.
func (m *TokenManager) IssueRefreshToken(userID uint) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.refreshTTL)
	claims := &Claims{
		UserID: userID,
		Type:   TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies an access credential. On ErrExpiredToken the
// claims are still returned; the signature has been checked by then.
func (m *TokenManager) ParseAccessToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, m.accessSecret, TokenTypeAccess)
}

// ParseRefreshToken verifies a refresh credential
func (m *TokenManager) ParseRefreshToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, m.refreshSecret, TokenTypeRefresh)
}

func (m *TokenManager) parse(tokenString string, secret []byte, want TokenType) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims.Type == want && claims.UserID != 0 {
			return claims, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid || claims.Type != want || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
