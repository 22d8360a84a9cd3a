// internal/auth/gate.go
package auth

import (
	"crypto/subtle"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Gate is the shared-secret access control: one configured password,
// binary authenticated state. The configured value may be a bcrypt hash
// (recognized by its prefix) or a plain secret compared in constant
// time. No lockout or rate limiting.
type Gate struct {
	secret string
	delay  time.Duration
}

// NewGate creates a gate for the configured secret. delay is the
// artificial wait applied to every verification attempt.
func NewGate(secret string, delay time.Duration) *Gate {
	return &Gate{secret: secret, delay: delay}
}

// Verify checks a submitted password. Every attempt takes at least the
// configured delay, success or not.
func (g *Gate) Verify(password string) bool {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}

	if strings.HasPrefix(g.secret, "$2a$") || strings.HasPrefix(g.secret, "$2b$") || strings.HasPrefix(g.secret, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(g.secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(g.secret), []byte(password)) == 1
}
