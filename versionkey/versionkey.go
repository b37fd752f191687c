// Package versionkey turns product version strings into fixed-width keys that
// sort correctly under plain string comparison.
package versionkey

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// VersionParseError is returned when a version string does not validate or
// cannot be decomposed into its parts.
type VersionParseError struct {
	Version string
	Err     error
}

func (e *VersionParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("version %q does not validate", e.Version)
	}
	return fmt.Sprintf("version %q does not parse: %s", e.Version, e.Err)
}

func (e *VersionParseError) Unwrap() error {
	return e.Err
}

const (
	// finalRC makes a final release sort after all of its release candidates.
	finalRC = 999
	// openBeta is used for "62.0b", which covers every beta of 62.0.
	openBeta = 999
)

// ValidateVersion reports whether version has at least two dot-separated
// parts and a purely numeric first part.
func ValidateVersion(version string) bool {
	if version == "" {
		return false
	}

	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return false
	}

	return isDigits(parts[0])
}

// GenerateVersionKey serializes version into a key that sorts with other keys.
//
// The key is major, minor and patch zero-padded to three digits, a channel
// letter (a, b, x for esr, r for release), the alpha/beta number and the rc
// number, both zero-padded to three digits:
//
//	GenerateVersionKey("62.0.2b5rc1") == "062000002b005001"
func GenerateVersionKey(version string) (string, error) {
	if !ValidateVersion(version) {
		return "", &VersionParseError{Version: version}
	}

	key, err := generate(version)
	if err != nil {
		return "", &VersionParseError{Version: version, Err: err}
	}
	return key, nil
}

func generate(version string) (string, error) {
	rc := strconv.Itoa(finalRC)
	if strings.Contains(version, "rc") {
		var err error
		version, rc, err = splitOnce(version, "rc")
		if err != nil {
			return "", err
		}
	}

	if strings.Contains(version, "pre") {
		var err error
		version, rc, err = splitOnce(version, "pre")
		if err != nil {
			return "", err
		}
		if rc == "" {
			rc = "1"
		}
	}

	rcNum, err := atoi(rc)
	if err != nil {
		return "", err
	}

	var (
		channel string
		number  int
	)
	switch {
	case strings.Contains(version, "a"):
		// The alpha number itself is not part of the key.
		version, _, err = splitOnce(version, "a")
		if err != nil {
			return "", err
		}
		channel, number = "a", 1
	case strings.Contains(version, "b"):
		var num string
		version, num, err = splitOnce(version, "b")
		if err != nil {
			return "", err
		}
		number = openBeta
		if num != "" {
			if number, err = atoi(num); err != nil {
				return "", err
			}
		}
		channel = "b"
	case strings.Contains(version, "esr"):
		version = strings.ReplaceAll(version, "esr", "")
		channel = "x"
	default:
		channel = "r"
	}

	parts := strings.Split(version, ".")
	nums := make([]int, 0, 3)
	for _, part := range parts {
		n, err := atoi(part)
		if err != nil {
			return "", err
		}
		nums = append(nums, n)
	}
	if len(nums) > 3 {
		return "", errors.Errorf("too many version parts: %d", len(nums))
	}
	for len(nums) < 3 {
		nums = append(nums, 0)
	}

	return fmt.Sprintf("%03d%03d%03d%s%03d%03d", nums[0], nums[1], nums[2], channel, number, rcNum), nil
}

// Compare orders two versions by their keys. It returns -1, 0 or 1.
func Compare(a, b string) (int, error) {
	ka, err := GenerateVersionKey(a)
	if err != nil {
		return 0, err
	}
	kb, err := GenerateVersionKey(b)
	if err != nil {
		return 0, err
	}
	return strings.Compare(ka, kb), nil
}

// Sort orders versions in place from oldest to newest. Nothing is reordered
// when any version fails to parse.
func Sort(versions []string) error {
	keys := make(map[string]string, len(versions))
	for _, v := range versions {
		k, err := GenerateVersionKey(v)
		if err != nil {
			return err
		}
		keys[v] = k
	}
	sort.SliceStable(versions, func(i, j int) bool {
		return keys[versions[i]] < keys[versions[j]]
	})
	return nil
}

// splitOnce splits s around sep and requires exactly two pieces.
func splitOnce(s, sep string) (string, string, error) {
	pieces := strings.Split(s, sep)
	if len(pieces) != 2 {
		return "", "", errors.Errorf("expected one %q in %q, found %d", sep, s, len(pieces)-1)
	}
	return pieces[0], pieces[1], nil
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid number %q", s)
	}
	return n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
