package resolver

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Candidate is one version of a name offered by a single vendor.
type Candidate struct {
	Vendor  string
	Name    string
	Version *semver.Version

	vendorOrder int // registration order, used only as a resolver tie-break
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s/%s@%s", c.Vendor, c.Name, c.Version)
}

// Requirement names a dependency a transform or another candidate declares:
// a name, a semver constraint, and an optional vendor pin.
type Requirement struct {
	Name    string
	Version *semver.Constraints
	Vendor  string // "" means "any vendor"
}

// Matches reports whether a candidate satisfies this requirement.
func (r Requirement) Matches(c Candidate) bool {
	if c.Name != r.Name {
		return false
	}
	if r.Vendor != "" && c.Vendor != r.Vendor {
		return false
	}
	if r.Version == nil {
		return true
	}
	return r.Version.Check(c.Version)
}

// ParseRequirement builds a Requirement from a raw name/constraint/vendor
// triple as found on a "wants" node.
func ParseRequirement(name, constraint, vendor string) (Requirement, error) {
	r := Requirement{Name: name, Vendor: vendor}
	if constraint == "" {
		return r, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return Requirement{}, fmt.Errorf("resolver: invalid version requirement %q: %w", constraint, err)
	}
	r.Version = c
	return r, nil
}
