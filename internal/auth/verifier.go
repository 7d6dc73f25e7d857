// Package auth implements bearer token verification for the live
// tracking API and realtime channel.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/internal/errs"
)

// Principal is the authenticated identity extracted from a token.
type Principal struct {
	UserID      string
	DisplayName string
}

// Verifier resolves a bearer credential to a principal, or rejects it.
type Verifier interface {
	Verify(token string) (*Principal, error)
}

type claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HMAC-signed access tokens issued by the auth
// service. Only the subject and display name claims are consumed here.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for tokens signed with the shared secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token. Any parse, signature, or expiry
// failure maps to errs.ErrInvalidToken; callers never see jwt internals.
func (v *JWTVerifier) Verify(token string) (*Principal, error) {
	if token == "" {
		return nil, errs.ErrInvalidToken
	}
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errs.ErrInvalidToken
	}
	if c.Subject == "" {
		return nil, errs.ErrInvalidToken
	}
	name := c.Name
	if name == "" {
		name = c.Subject
	}
	return &Principal{UserID: c.Subject, DisplayName: name}, nil
}
