package auth

import (
	"strings"

	"github.com/myazlifresh/foundersite/pkg"
)

// Admin is the single configured administrator identity, it is
// read from process configuration at startup and never mutated
type Admin struct {
	Email        string
	PasswordHash string
}

// Verifier decides whether a submitted email/password pair
// identifies the administrator
type Verifier struct {
	admin Admin
}

func NewVerifier(admin Admin) *Verifier {
	return &Verifier{
		admin: admin,
	}
}

// Verify returns nil only when both the email and the password match the
// configured admin identity. Email and password mismatches are deliberately
// indistinguishable to the caller (prevents username enumeration).
func (v *Verifier) Verify(email, password string) error {
	if v.admin.Email == "" || v.admin.PasswordHash == "" {
		return ErrNotConfigured
	}

	if !strings.EqualFold(email, v.admin.Email) {
		return ErrInvalidCredentials
	}

	if !pkg.CheckPasswordHash(password, v.admin.PasswordHash) {
		return ErrInvalidCredentials
	}

	return nil
}
