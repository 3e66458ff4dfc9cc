package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims is the payload of every issued token. Accounts lists one entry
// per account the user belongs to; SignedInAccount is set only when a token is
// scoped to an account.
type sessionClaims struct {
	Accounts        []string `json:"accts,omitempty"`
	SignedInAccount string   `json:"sia,omitempty"`
	jwt.RegisteredClaims
}

// TokenOptions configures issuance and validation.
type TokenOptions struct {
	TTL      time.Duration
	Issuer   string
	Audience string
	// ClockSkew is the leeway applied to exp, nbf and iat during verification.
	ClockSkew time.Duration
}

const defaultTokenTTL = time.Hour

func (o TokenOptions) withDefaults() TokenOptions {
	if o.TTL <= 0 {
		o.TTL = defaultTokenTTL
	}
	return o
}
