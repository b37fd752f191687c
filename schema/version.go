package schema

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// Version represents the version of a schema document, taken from its
// "$target_version" keyword.
type Version string

// Validate the provided schema version is present and adheres
// to semantic versioning
func (v Version) Validate() error {
	version := string(v)

	_, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid schema version %q: %v", version, err)
	}
	return nil
}

// Satisfies reports whether the version meets a semver constraint such as
// ">= 2.0.0, < 3.0.0".
func (v Version) Satisfies(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid schema version constraint %q: %v", constraint, err)
	}
	sv, err := semver.NewVersion(string(v))
	if err != nil {
		return false, fmt.Errorf("invalid schema version %q: %v", string(v), err)
	}
	return c.Check(sv), nil
}
