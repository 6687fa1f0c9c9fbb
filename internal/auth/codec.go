package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL - session lifetime, fixed, not sliding; each successful
// login restarts the clock
const DefaultTTL = 24 * time.Hour

// SessionClaims is everything a session carries. The expiry is an absolute
// timestamp embedded in the signed payload, so validity never depends on
// any server-side session state.
type SessionClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// Codec mints and validates signed session tokens (HS256 JWTs).
// The server holds no copy of issued tokens - validity is recomputed
// from the signature and the embedded expiry on every request.
type Codec struct {
	secret []byte
	ttl    time.Duration
	// ability to inject the clock (for unit testing expiry)
	NowFunc func() time.Time
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{
		secret:  []byte(secret),
		ttl:     ttl,
		NowFunc: time.Now,
	}
}

// NewSessionClaims returns admin claims expiring ttl from now
func (c *Codec) NewSessionClaims() SessionClaims {
	return SessionClaims{
		Subject:   SubjectAdmin,
		ExpiresAt: c.NowFunc().Add(c.ttl),
	}
}

func (c *Codec) Issue(claims SessionClaims) (string, error) {
	if len(c.secret) == 0 {
		return "", ErrNotConfigured
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.Subject,
		IssuedAt:  jwt.NewNumericDate(c.NowFunc()),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Validate verifies the token signature and the embedded expiry.
// A token whose expiry equals the current instant is already expired.
func (c *Codec) Validate(tokenString string) (SessionClaims, error) {
	if len(c.secret) == 0 {
		return SessionClaims{}, ErrNotConfigured
	}

	var registered jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenString,
		&registered,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.NowFunc() }),
	)

	switch {
	case err == nil && token.Valid:
		return SessionClaims{
			Subject:   registered.Subject,
			ExpiresAt: registered.ExpiresAt.Time,
		}, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return SessionClaims{}, ErrTokenExpired
	default:
		// tampered, forged, signed with a rotated key, or garbage
		return SessionClaims{}, ErrTokenInvalid
	}
}
