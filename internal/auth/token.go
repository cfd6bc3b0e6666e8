package auth

import (
	"errors"
	"fmt"
	"time"

	"storefront-api/internal/config"
	"storefront-api/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string     `json:"userId"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenMaker issues and verifies HS256 access and refresh tokens.
// The two kinds are signed with different secrets so one can never stand in for the other.
type TokenMaker struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenMaker(cfg config.Auth) *TokenMaker {
	return &TokenMaker{
		accessSecret:  []byte(cfg.Secret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

func (m *TokenMaker) CreateAccessToken(user *model.User) (string, error) {
	return m.sign(user, m.accessSecret, m.accessTTL)
}

func (m *TokenMaker) CreateRefreshToken(user *model.User) (string, error) {
	return m.sign(user, m.refreshSecret, m.refreshTTL)
}

func (m *TokenMaker) VerifyAccessToken(token string) (*Claims, error) {
	return m.verify(token, m.accessSecret)
}

func (m *TokenMaker) VerifyRefreshToken(token string) (*Claims, error) {
	return m.verify(token, m.refreshSecret)
}

func (m *TokenMaker) sign(user *model.User, secret []byte, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenMaker) verify(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	return claims, nil
}
