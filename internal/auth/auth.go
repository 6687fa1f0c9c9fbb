package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials covers both a wrong email and a wrong password,
	// callers must not be able to tell which one it was
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotConfigured - admin identity or signing secret missing,
	// authentication must fail closed instead of using any default
	ErrNotConfigured = errors.New("auth not configured")
	ErrTokenInvalid  = errors.New("session token invalid")
	ErrTokenExpired  = errors.New("session token expired")
)

// SubjectAdmin is the only principal this service knows about
const SubjectAdmin = "admin"

type contextKey struct{}

func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextKey{}, subject)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(contextKey{}).(string)
	return subject, ok
}
