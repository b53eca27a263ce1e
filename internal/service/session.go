package service

import (
	"errors"
	"fmt"
	"time"

	"tasktracker/internal/models"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidSession = errors.New("invalid session token")

type SessionUser struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// SessionClaims is the token payload: {"user": {"email", "role"}} plus registered claims.
type SessionClaims struct {
	User SessionUser `json:"user"`
	jwt.RegisteredClaims
}

// SessionIssuer mints stateless HS256 tokens. Nothing is stored server side.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the issuer that stamps and checks tokens using now.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	cp := *s
	cp.now = now
	return &cp
}

func (s *SessionIssuer) Issue(email string, role models.Role) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := SessionClaims{
		User: SessionUser{Email: models.NormalizeEmail(email), Role: role},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   models.NormalizeEmail(email),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, then expiry against the issuer's clock, and
// returns the embedded claims.
func (s *SessionIssuer) Verify(token string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.ExpiresAt == nil || !claims.User.Role.Valid() {
		return nil, ErrInvalidSession
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidSession)
	}
	return claims, nil
}
