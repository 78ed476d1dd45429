package resolver

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/cuemby/edo/internal/node"
)

// Vendor is the interface a dependency source (a git forge, a package
// registry, an in-memory table) implements to participate in resolution.
type Vendor interface {
	// Name identifies the vendor for requirement pinning.
	Name() string
	// Options returns every version of name this vendor offers.
	Options(ctx context.Context, name string) ([]*semver.Version, error)
	// Resolve returns the concrete definition node for one
	// (name, version) pair, to be instantiated as a Source once chosen.
	Resolve(ctx context.Context, name string, version *semver.Version) (*node.Node, error)
	// Dependencies returns the transitive requirements of one
	// (name, version) pair, keyed by dependency name.
	Dependencies(ctx context.Context, name string, version *semver.Version) (map[string]string, error)
}
