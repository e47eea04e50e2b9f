package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Mathew-Seliverstov/projectAuthServer/internal/domain/models"
)

// ErrInvalidToken covers every verification failure: forged, malformed,
// expired, wrong signing method. Callers never learn which.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID      int64  `json:"uid"`
	Email       string `json:"email"`
	IsActivated bool   `json:"activated"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies access/refresh token pairs. Access and refresh
// tokens are signed with distinct secrets, so a leaked access token cannot
// be presented as a refresh token.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (i *Issuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

// IssuePair signs a fresh access/refresh pair embedding the payload. Each
// call produces new iat/exp/jti values, so pairs are never reused.
func (i *Issuer) IssuePair(payload models.TokenPayload) (models.TokenPair, error) {
	const op = "jwt.IssuePair"

	accessToken, err := sign(payload, i.accessSecret, i.accessTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := sign(payload, i.refreshSecret, i.refreshTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (i *Issuer) VerifyAccess(token string) (models.TokenPayload, error) {
	return verify(token, i.accessSecret)
}

func (i *Issuer) VerifyRefresh(token string) (models.TokenPayload, error) {
	return verify(token, i.refreshSecret)
}

func sign(payload models.TokenPayload, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID:      payload.ID,
		Email:       payload.Email,
		IsActivated: payload.IsActivated,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

func verify(tokenString string, secret []byte) (models.TokenPayload, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return models.TokenPayload{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return models.TokenPayload{}, ErrInvalidToken
	}

	return models.TokenPayload{
		ID:          claims.UserID,
		Email:       claims.Email,
		IsActivated: claims.IsActivated,
	}, nil
}
