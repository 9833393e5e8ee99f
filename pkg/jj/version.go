package jj

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// ParseVersion extracts the semantic version from `jj version` output,
// which looks like "jj 0.23.0" or "jj 0.24.0-8c7d...".
func ParseVersion(output string) (*semver.Version, error) {
	fields := strings.Fields(strings.TrimSpace(output))
	if len(fields) == 0 {
		return nil, jiberrors.NewVCSError("version", "empty version output")
	}

	raw := fields[len(fields)-1]
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, jiberrors.NewVCSErrorWithCause("version",
			fmt.Sprintf("cannot parse version %q", raw), err)
	}

	return v, nil
}

// CheckMinimum verifies the installed jj version satisfies the
// configured minimum. An empty minimum disables the check.
func CheckMinimum(v *semver.Version, minimum string) error {
	if minimum == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(">= " + minimum)
	if err != nil {
		return jiberrors.NewConfigErrorWithCause("jj.min_version",
			fmt.Sprintf("invalid minimum version %q", minimum), err)
	}

	if !constraint.Check(v) {
		return jiberrors.Newf("jj %s is older than the required %s", v, minimum)
	}

	return nil
}
