package negotiation

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// VersionError is returned when a client version is below the minimum.
type VersionError struct {
	Code       string
	Message    string
	Version    string
	MinVersion string
}

func (e *VersionError) Error() string {
	return e.Message
}

// CheckVersion verifies version against minVersion. An empty minimum accepts
// everything. Versions that are not semver are rejected once a minimum is set.
func CheckVersion(version, minVersion string) error {
	if minVersion == "" {
		return nil
	}
	if Supported(version, minVersion) {
		return nil
	}
	return &VersionError{
		Code:       ClientVersionUnsupported,
		Message:    fmt.Sprintf("client version %s is not supported, minimum is %s", version, minVersion),
		Version:    version,
		MinVersion: minVersion,
	}
}

// Supported reports whether version >= minVersion under semver ordering.
func Supported(version, minVersion string) bool {
	v := normalizeVersion(version)
	m := normalizeVersion(minVersion)
	if !semver.IsValid(v) || !semver.IsValid(m) {
		return false
	}
	return semver.Compare(v, m) >= 0
}

// normalizeVersion adds "v" prefix if needed for semver parsing.
func normalizeVersion(v string) string {
	if v == "" {
		return "v0.0.0"
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
