package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// SessionLifetime defines how long session tokens are valid
	SessionLifetime = 7 * 24 * time.Hour
)

var (
	// ErrTokenExpired is returned when the session token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidToken is returned when the token is invalid for any reason
	ErrInvalidToken = errors.New("invalid token")
)

// SessionClaims are the JWT claims carried by a session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID uint64 `json:"user_id"`
	Login  string `json:"login"`
}

// CreateSessionToken generates a signed JWT for a logged-in user. The jti
// claim carries the server-side session ID so logout can revoke it.
func CreateSessionToken(sessionID string, userID uint64, login string, secret string) (string, error) {
	now := time.Now()

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sessionID,
		},
		UserID: userID,
		Login:  login,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

// ValidateSessionToken validates and parses a session JWT.
func ValidateSessionToken(tokenString string, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
