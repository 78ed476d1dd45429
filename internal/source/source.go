// Package source defines the Source interface: something that can be
// fetched once and staged into many environments, grounded on the
// original's source/mod.rs. Concrete fetchers (local path, git, oci,
// remote http) are external collaborators; the "local" kind ships with
// the core plugin.
package source

import (
	"context"
	"io"

	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/node"
	"github.com/rs/zerolog"
)

// Storage is the minimal slice of storage.Storage a Source needs, kept as
// an interface here so this package does not import internal/storage
// (which would create an import cycle, since storage has no need to know
// about sources).
type Storage interface {
	FetchSource(ctx context.Context, id node.Id) (node.Artifact, error)
	SafeRead(ctx context.Context, l node.Layer) (io.ReadCloser, error)
	SafeSave(ctx context.Context, artifact node.Artifact) error
	SafeStartLayer(ctx context.Context) (io.WriteCloser, error)
	SafeFinishLayer(ctx context.Context, mt node.MediaType, platform string, w io.WriteCloser) (node.Layer, error)
}

// Source is something that can be fetched once (and cached) and then
// staged into any number of environments.
type Source interface {
	// UniqueID derives the Id this source's fetched content should be
	// cached under.
	UniqueID(ctx context.Context) (node.Id, error)
	// Fetch returns the source's content, consulting st's source cache
	// tier before doing any real work (see Cache).
	Fetch(ctx context.Context, log zerolog.Logger, st Storage) (node.Artifact, error)
	// Stage unpacks a previously fetched artifact into env at path.
	Stage(ctx context.Context, log zerolog.Logger, st Storage, env environment.Environment, path string) error
}

// Cache is the standard Fetch implementation every concrete Source should
// delegate to: it checks the storage layer's source cache before falling
// back to the source-specific fetch function, so repeated builds never
// re-fetch unchanged content.
func Cache(ctx context.Context, st Storage, id node.Id, fetch func(context.Context) (node.Artifact, error)) (node.Artifact, error) {
	if a, err := st.FetchSource(ctx, id); err == nil {
		return a, nil
	}
	return fetch(ctx)
}
