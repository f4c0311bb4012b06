package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ppmkconnect-core/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// UserClaims carries the current-user fact the authorization predicate
// consumes. ScopeIDs is resolved once, when the token is minted, never
// re-derived per check.
type UserClaims struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	ScopeIDs []string    `json:"scope_ids,omitempty"`
	jwt.RegisteredClaims
}

// CurrentUser converts the claims into the read-only identity fact.
func (c *UserClaims) CurrentUser() domain.CurrentUser {
	return domain.CurrentUser{
		ID:       c.Subject,
		Name:     c.Name,
		Email:    c.Email,
		Role:     c.Role,
		ScopeIDs: c.ScopeIDs,
	}
}

type TokenManager interface {
	GenerateToken(user domain.CurrentUser, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*UserClaims, error)
}

type tokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) TokenManager {
	return &tokenManager{
		secret: []byte(secret),
	}
}

func (m *tokenManager) GenerateToken(user domain.CurrentUser, ttl time.Duration) (string, error) {
	claims := UserClaims{
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		ScopeIDs: user.ScopeIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "ppmkconnect",
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
