package shop

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
)

// ErrNotFound marks a mutation or lookup whose target does not exist.
var ErrNotFound = errors.New("not found")

// TransportError is a failed remote call: network fault, timeout, non-2xx
// status or undecodable body. It is always recoverable.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNotFound) match a 404 response.
func (e *TransportError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// ValidationError rejects caller input before any state is touched.
type ValidationError struct {
	Op     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Field, e.Reason)
}

// IsRecoverable reports whether err came from the remote side and the
// operation may be re-invoked by the user.
func IsRecoverable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
