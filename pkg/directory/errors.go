package directory

import (
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when no user matches the given id or email.
var ErrUserNotFound = errors.New("user not found")

// ValidationError carries a 4xx rejection from the users api so callers can
// forward its status and body verbatim.
type ValidationError struct {
	Status int
	Body   []byte
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("users api rejected request: status %d", e.Status)
}
