package domain

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrUserLocked           = errors.New("user locked after too many failed logins")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountNotFound      = errors.New("account not found")
	ErrRoleNotFound         = errors.New("role not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrTokenNotFound        = errors.New("token not found")
	ErrSignatureKeyNotFound = errors.New("signature key not found")
	ErrNoActiveAccount      = errors.New("no active account")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrSoleOwner            = errors.New("user is the sole owner of the account")
	ErrSystemRole           = errors.New("system-defined roles cannot be deleted")
	ErrInvalidInput         = errors.New("invalid input")

	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrDecryption           = errors.New("decryption failed")
)
