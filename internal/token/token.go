// Package token issues and verifies the signed identity tokens that back
// every protected API route.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"agora/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TTL is the lifetime of an issued token.
const TTL = time.Hour

// ErrInvalidToken is returned by Verify for any malformed, tampered or
// expired token. Callers map it to an unauthorized response.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the decoded identity fields carried inside a verified token.
//
// The username claim is a snapshot taken at issue time; a profile rename
// makes it stale until the caller adopts the freshly issued token.
type Claims struct {
	UserID   uint
	Username string
	Role     string
}

// CanMutate reports whether the claims holder may edit or delete a resource
// owned by ownerID: admins may mutate anything, everyone else only their own.
func (c Claims) CanMutate(ownerID uint) bool {
	return c.Role == models.RoleAdmin || c.UserID == ownerID
}

// Service signs and verifies identity tokens with a process-wide secret.
type Service struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewService creates a token service using the given signing secret.
func NewService(secret string) *Service {
	return &Service{
		secret:   []byte(secret),
		issuer:   "agora-api",
		audience: "agora-client",
		now:      time.Now,
	}
}

// Issue returns a signed token carrying the user's id, username and role.
// A missing signing secret is a configuration error, never a silent bypass.
func (s *Service) Issue(userID uint, username, role string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10), // Subject (user ID as string)
		"username": username,
		"role":     role,
		"iss":      s.issuer,
		"aud":      s.audience,
		"exp":      now.Add(TTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify parses and validates a token string and returns its claims.
// Any failure (bad signature, expiry, malformed payload) yields ErrInvalidToken.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	username, _ := mapClaims["username"].(string)
	role, _ := mapClaims["role"].(string)
	if role == "" {
		role = models.RoleUser
	}

	return &Claims{
		UserID:   uint(userID),
		Username: username,
		Role:     role,
	}, nil
}
