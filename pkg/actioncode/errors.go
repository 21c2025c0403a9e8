package actioncode

import "errors"

var (
	// ErrCodeExpired is returned when a code's signature verifies but its
	// expiry has passed.
	ErrCodeExpired = errors.New("action code has expired")

	// ErrCodeInvalid is returned for any other verification failure: bad
	// signature, wrong kind, or a structurally invalid payload.
	ErrCodeInvalid = errors.New("action code is malformed or invalid")
)
