package utils // package utils provides helper functions for token minting, validation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// ErrInvalidToken is returned for every way a token can fail validation:
// malformed structure, wrong signature, wrong algorithm or past expiry. The
// failure modes are deliberately indistinguishable to the caller so the API
// cannot be used as an oracle.
var ErrInvalidToken = errors.New("invalid token")

// SignedToken is a compact signed bearer token together with its expiry.
// The same shape is used for access tokens (minutes-lived) and refresh
// tokens (days-lived); only the TTL differs.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// IssueToken builds and signs an HS256 JWT carrying the subject (the user's
// email), a comma-joined role claim, issued-at and expiry. The signing
// secret is process-wide configuration; rotating it invalidates every
// outstanding token.
func IssueToken(secret, subject, roleClaim string, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":   subject,
		"roles": roleClaim,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ValidateToken verifies the signature and expiry of a token produced by
// IssueToken and returns its subject and role claim. Any failure yields
// ErrInvalidToken.
func ValidateToken(secret, raw string) (subject, roleClaim string, err error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything other than HMAC; a crafted
		// token must not be able to switch the algorithm.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", "", ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", "", ErrInvalidToken
	}
	roles, _ := claims["roles"].(string)
	return sub, roles, nil
}

// ExtractSubject pulls the subject out of a token without enforcing expiry.
// Used only on best-effort paths (logout) where an already-expired token
// should still identify whose cache entries to drop. The signature is still
// verified.
func ExtractSubject(secret, raw string) string {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	tok, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return ""
	}
	if claims, ok := tok.Claims.(jwt.MapClaims); ok {
		if sub, ok := claims["sub"].(string); ok {
			return sub
		}
	}
	return ""
}
