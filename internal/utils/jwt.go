package utils

import (
	"errors"
	"time"

	"alumnet/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "alumnet-api"

	AudienceAccess  = "access"
	AudienceRefresh = "refresh"
)

var (
	ErrMissingSecret = errors.New("JWT secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// TokenIssuer signs and verifies HS256 user tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// GenerateTokens returns an access token and a refresh token for the user.
// The refresh token carries no permissions.
func (t *TokenIssuer) GenerateTokens(user *models.User) (accessToken string, refreshToken string, err error) {
	if len(t.secret) == 0 {
		return "", "", ErrMissingSecret
	}
	now := t.now()

	access := t.claims(user, AudienceAccess, now, t.accessTTL)
	access.Permissions = models.GetDefaultPermissions(user.Role)
	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(t.secret)
	if err != nil {
		return "", "", err
	}

	refresh := t.claims(user, AudienceRefresh, now, t.refreshTTL)
	refreshToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(t.secret)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (t *TokenIssuer) claims(user *models.User, audience string, now time.Time, ttl time.Duration) models.UserClaims {
	return models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{audience},
		},
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}
}

// ParseToken validates tokenStr for the given audience and returns its claims.
func (t *TokenIssuer) ParseToken(tokenStr, audience string) (*models.UserClaims, error) {
	if len(t.secret) == 0 {
		return nil, ErrMissingSecret
	}
	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
