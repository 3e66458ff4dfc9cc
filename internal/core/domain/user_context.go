package domain

// UserContext describes the authenticated caller of one request. It is never persisted.
type UserContext struct {
	UserID    string
	AccountID string // empty when no account is active
	TokenID   string
	DeviceID  string
	Accounts  []AccountSummary
}

// HasActiveAccount reports whether an account is selected.
func (uc *UserContext) HasActiveAccount() bool {
	return uc != nil && uc.AccountID != ""
}
