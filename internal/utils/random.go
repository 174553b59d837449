package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// NewSingleUseToken returns a URL-safe random string carrying 256 bits of
// entropy, suitable for email-verification and password-reset links. The
// raw value is stored as-is; uniqueness is enforced by the database.
func NewSingleUseToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
