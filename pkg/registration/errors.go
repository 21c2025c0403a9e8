package registration

import "errors"

var (
	// ErrCodeNotFound is returned when a code is unrecognized: bad
	// signature, wrong kind, or structurally invalid.
	ErrCodeNotFound = errors.New("code not recognized")

	// ErrCodeGone is returned when a code is well-formed but expired or
	// already consumed.
	ErrCodeGone = errors.New("code expired or already used")

	// ErrConflict is returned when a cached terminal outcome recorded a
	// precondition conflict for this code.
	ErrConflict = errors.New("request conflicts with current state")

	// ErrAlreadyConfirmed is returned when the target email is already
	// confirmed.
	ErrAlreadyConfirmed = errors.New("email already confirmed")

	// ErrSameEmail is returned when the requested new email matches the
	// user's current email.
	ErrSameEmail = errors.New("new email same as current email")

	// ErrEmailUnavailable is returned when the requested new email already
	// belongs to another user.
	ErrEmailUnavailable = errors.New("new email unavailable")

	// ErrSendCooldown is returned when an email was sent to the same
	// identity too recently.
	ErrSendCooldown = errors.New("email sent too recently")
)
