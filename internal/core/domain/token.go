package domain

import "time"

// TrackedAuthToken is the server-side record of an issued token. It is the
// authoritative source of the token's live, revoked or expired status.
type TrackedAuthToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenID   string     `json:"token_id"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the token is neither revoked nor expired at now.
func (t *TrackedAuthToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// TokenIssueStatus is the outcome of a token issuance.
type TokenIssueStatus int

const (
	TokenIssued TokenIssueStatus = iota
	TokenIssueUserNotFound
	TokenIssueSignatureKeyNotFound
	TokenIssueAccountNotFound
)

func (s TokenIssueStatus) String() string {
	switch s {
	case TokenIssued:
		return "success"
	case TokenIssueUserNotFound:
		return "user_not_found"
	case TokenIssueSignatureKeyNotFound:
		return "signature_key_not_found"
	case TokenIssueAccountNotFound:
		return "account_not_found"
	}
	return "unknown"
}

// TokenIssueResult carries the serialized token and its jti on success.
type TokenIssueResult struct {
	Status    TokenIssueStatus
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// TokenValidationStatus is the outcome of a token validation.
type TokenValidationStatus int

const (
	TokenValid TokenValidationStatus = iota
	TokenInvalidFormat
	TokenMissingUserIDClaim
	TokenValidationFailed
)

func (s TokenValidationStatus) String() string {
	switch s {
	case TokenValid:
		return "success"
	case TokenInvalidFormat:
		return "invalid_token_format"
	case TokenMissingUserIDClaim:
		return "missing_user_id_claim"
	case TokenValidationFailed:
		return "token_validation_failed"
	}
	return "unknown"
}

// TokenValidationResult is the sole input used to build a UserContext.
type TokenValidationResult struct {
	Status            TokenValidationStatus
	UserID            string
	SignedInAccountID string
	TokenID           string
	AccountIDs        []string // memberships at issuance, from the verified claims
}
