package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserSafeMessage maps internal errors to a message safe to return to
// callers. Unknown errors collapse to a generic message so internal causes
// stay on the log and audit channels.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	default:
		return "internal error"
	}
}
