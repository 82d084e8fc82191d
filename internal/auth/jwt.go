package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers malformed, expired, revoked and foreign tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is what a session token asserts.
type Claims struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a signed token for userID.
func (m *TokenManager) GenerateToken(userID int64) (string, Claims, error) {
	now := m.now()
	c := Claims{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(m.ttl),
	}

	// 1. "sub" is the user id, "jti" lets sign-out revoke this one token
	claims := jwt.MapClaims{
		"sub": userID,
		"jti": c.TokenID,
		"exp": c.ExpiresAt.Unix(),
		"iat": now.Unix(),
	}

	// 2. Sign
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, c, nil
}

// ValidateToken parses tokenString and returns its claims.
func (m *TokenManager) ValidateToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	// JSON numbers decode as float64
	sub, ok := claims["sub"].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("%w: invalid subject claim", ErrInvalidToken)
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return Claims{}, fmt.Errorf("%w: missing token id", ErrInvalidToken)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, fmt.Errorf("%w: invalid expiry", ErrInvalidToken)
	}

	return Claims{UserID: int64(sub), TokenID: jti, ExpiresAt: exp.Time}, nil
}
