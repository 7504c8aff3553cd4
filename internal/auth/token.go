// Package auth issues and verifies the bearer credentials that front the
// identity resolver. Verification sits behind TokenValidator so the local
// HS256 implementation can be swapped for an out-of-process validator
// without touching the resolver.
package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any credential that does not verify:
// bad signature, expired, malformed.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated identity a validated credential yields.
type Identity struct {
	UserID string
	Email  string
}

// TokenValidator validates a bearer credential. Implementations must return
// ErrInvalidToken (possibly wrapped) for rejected credentials so callers can
// distinguish rejection from infrastructure failure.
type TokenValidator interface {
	Validate(token string) (*Identity, error)
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Signer signs and validates HS256 tokens with a shared secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

func (s *Signer) Sign(userID, email string) (string, error) {
	now := time.Now()
	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *Signer) Validate(token string) (*Identity, error) {
	t, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*claims)
	if !ok || !t.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: c.Subject, Email: c.Email}, nil
}

// NewID generates an opaque identifier for users, sessions and feedback.
func NewID() string {
	return uuid.NewString()
}
