package auth

var _ Checker = (*Codec)(nil)

// Checker validates a session token and returns its claims
type Checker interface {
	Validate(token string) (SessionClaims, error)
}
