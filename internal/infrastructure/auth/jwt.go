package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/gojournal/internal/domain"
)

var (
	// ErrInvalidToken is returned for malformed or badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for tokens past their expiry.
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents the JWT claims. The subject is the actor id.
type Claims struct {
	Role     domain.Role `json:"role"`
	Branches []string    `json:"branches,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the caller identity.
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{
		ID:       c.Subject,
		Role:     c.Role,
		Branches: c.Branches,
	}
}

// JWTManager manages JWT token creation and validation
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// Generate issues a token for actor. Used by the CLI and for tests.
func (m *JWTManager) Generate(actor domain.Actor) (string, error) {
	if actor.ID == "" || !actor.Role.IsValid() {
		return "", fmt.Errorf("%w: actor needs an id and a known role", domain.ErrValidation)
	}

	now := m.now()
	claims := Claims{
		Role:     actor.Role,
		Branches: actor.Branches,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify verifies a JWT token and returns the claims
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || !claims.Role.IsValid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
