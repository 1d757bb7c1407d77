package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("token is expired")
	// ErrTokenMalformed indicates a token that failed signature or structure checks.
	ErrTokenMalformed = errors.New("token is malformed")
)

// Claims is the payload carried by both token kinds.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies access and refresh tokens. The two kinds
// are signed with distinct secrets so that one leaked secret cannot forge the
// other kind.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
}

func NewTokenManager(accessSecret, refreshSecret string) (*TokenManager, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}, nil
}

// IssueAccess signs a short-lived access token for the given subject.
func (m *TokenManager) IssueAccess(userID, email string, ttl time.Duration) (string, error) {
	return sign(m.accessSecret, userID, email, ttl)
}

// IssueRefresh signs a long-lived refresh token for the given subject.
func (m *TokenManager) IssueRefresh(userID, email string, ttl time.Duration) (string, error) {
	return sign(m.refreshSecret, userID, email, ttl)
}

// VerifyAccess parses and validates an access token.
func (m *TokenManager) VerifyAccess(token string) (*Claims, error) {
	return verify(m.accessSecret, token)
}

// VerifyRefresh parses and validates a refresh token.
func (m *TokenManager) VerifyRefresh(token string) (*Claims, error) {
	return verify(m.refreshSecret, token)
}

func sign(secret []byte, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func verify(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
