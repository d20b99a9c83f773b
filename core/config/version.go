package config

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a document language version encoded as major*100+minor, so
// 1.6 is 106. The zero Version means "not specified".
type Version uint

// Known version range. Versions outside it are accepted with a warning.
const (
	MinKnownVersion Version = 100
	MaxKnownVersion Version = 106
)

// ParseVersion parses "1.6", "v1.6" or "1.6.0" into a Version. Patch
// components are accepted and ignored.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty version")
	}
	v := s
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	// semver.IsValid requires the "v" prefix
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return 0, fmt.Errorf("invalid version %q", s)
	}

	parts := strings.SplitN(strings.TrimPrefix(semver.MajorMinor(v), "v"), ".", 2)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid major version in %q: %w", s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minor version in %q: %w", s, err)
	}
	if minor > 99 {
		return 0, fmt.Errorf("minor version out of range in %q", s)
	}
	return Version(major*100 + minor), nil
}

// MustParseVersion is ParseVersion for constants in tests and defaults.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Known reports whether v is within the known version range.
func (v Version) Known() bool {
	return v >= MinKnownVersion && v <= MaxKnownVersion
}

// IsSet reports whether a version was specified.
func (v Version) IsSet() bool {
	return v != 0
}

func (v Version) String() string {
	if v == 0 {
		return "unset"
	}
	return fmt.Sprintf("%d.%d", v/100, v%100)
}
