// Package crashid creates and inspects crash IDs.
//
// A crash ID is a random UUID whose last seven characters are replaced with a
// throttle digit and the submission date, for example:
//
//	de1bb258-cbbf-4589-a673-34f800160918
//	                             ^^^^^^^ 0 = accepted, 160918 = 2016-09-18
package crashid

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const dateLayout = "060102"

// DefaultThrottle marks a crash that was accepted without throttling.
const DefaultThrottle = 0

var crashIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{5}[0-9]{7}$`)

// ErrInvalid is returned when a crash ID does not have the expected shape.
var ErrInvalid = errors.New("invalid crash ID")

// Create returns a new crash ID stamped with the given submission time.
func Create(when time.Time) string {
	return CreateWithThrottle(when, DefaultThrottle)
}

// CreateWithThrottle is Create with an explicit throttle digit (0-9).
func CreateWithThrottle(when time.Time, throttle int) string {
	if throttle < 0 || throttle > 9 {
		throttle = DefaultThrottle
	}
	id := uuid.New().String()
	return fmt.Sprintf("%s%d%s", id[:len(id)-7], throttle, when.UTC().Format(dateLayout))
}

// Validate reports whether crashID has the shape produced by Create.
func Validate(crashID string) bool {
	if !crashIDPattern.MatchString(crashID) {
		return false
	}
	_, err := time.Parse(dateLayout, crashID[len(crashID)-6:])
	return err == nil
}

// Date returns the submission date encoded in crashID.
func Date(crashID string) (time.Time, error) {
	if !crashIDPattern.MatchString(crashID) {
		return time.Time{}, errors.Wrapf(ErrInvalid, "%q", crashID)
	}
	d, err := time.Parse(dateLayout, crashID[len(crashID)-6:])
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalid, "%q has no date: %s", crashID, err)
	}
	return d, nil
}

// Throttle returns the throttle digit encoded in crashID.
func Throttle(crashID string) (int, error) {
	if !Validate(crashID) {
		return 0, errors.Wrapf(ErrInvalid, "%q", crashID)
	}
	return int(crashID[len(crashID)-7] - '0'), nil
}
