package crashstorage

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCrashIDNotFound matches every *CrashIDNotFound through errors.Is.
var ErrCrashIDNotFound = errors.New("crash id not found")

// CrashIDNotFound is returned when an artifact of a crash is missing.
type CrashIDNotFound struct {
	CrashID  string
	Artifact string
	Err      error
}

func (e *CrashIDNotFound) Error() string {
	return fmt.Sprintf("%s not found: %v", e.CrashID, e.Err)
}

func (e *CrashIDNotFound) Unwrap() error {
	return e.Err
}

func (e *CrashIDNotFound) Is(target error) bool {
	return target == ErrCrashIDNotFound
}

// IsNotFound reports whether err is, or wraps, a CrashIDNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCrashIDNotFound)
}
