package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

const tokenIssuer = "datacatalog"

// Claims is the payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserID returns the subject of the token as a user id.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

func NewTokenManager(secret string, validity time.Duration) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		validity: validity,
		now:      time.Now,
	}
}

// Issue signs a session token for u.
func (m *TokenManager) Issue(u *models.User) (string, time.Time, apperrors.Error) {
	now := m.now()
	expiry := now.Add(m.validity)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    tokenIssuer,
			Audience:  []string{tokenIssuer},
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Username: u.Username,
		Role:     u.Role,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, ErrTokenGeneration.Err(err)
	}
	return signed, expiry, nil
}

// Parse verifies the signature and time claims of a token.
func (m *TokenManager) Parse(tokenString string) (*Claims, apperrors.Error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, ErrInvalidToken.Err(err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
