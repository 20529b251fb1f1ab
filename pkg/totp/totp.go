// Package totp supplies two-factor codes for warm-up logins. Code
// generation is a pluggable capability: the login handler only sees the
// Generator interface, so deployments with an external 2FA service can
// swap the implementation.
package totp

import (
	"errors"
	"time"

	"github.com/pquerna/otp/totp"
)

var ErrNoSecret = errors.New("no totp secret configured")

type Generator interface {
	Code(secret string, at time.Time) (string, error)
}

// TOTP generates RFC 6238 codes from a stored base32 secret.
type TOTP struct{}

func New() TOTP {
	return TOTP{}
}

func (TOTP) Code(secret string, at time.Time) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}

	return totp.GenerateCode(secret, at)
}
