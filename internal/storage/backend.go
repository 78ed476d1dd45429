// Package storage implements the content-addressed artifact store: the
// Backend interface, its two first-party implementations (a filesystem
// catalog and a bbolt-embedded catalog), and the Storage aggregate that
// layers a local cache in front of ordered source/build/output backends.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/cuemby/edo/internal/node"
)

// ErrNotFound is returned by Backend.Open/Read when an id or layer is
// absent from the backend.
var ErrNotFound = errors.New("storage: not found")

// ErrLayerMissing is returned by Save when an artifact references a layer
// digest that has no corresponding blob in the backend.
var ErrLayerMissing = errors.New("storage: referenced layer missing from blob store")

// Backend is the uniform verb set every storage tier (local cache, a
// source cache, the build cache, the output cache) implements. Concrete
// network-backed implementations (git, oci registries, s3, http) are
// external collaborators; LocalBackend and BoltBackend are the two
// first-party implementations shipped with the core.
type Backend interface {
	// List returns every Id currently cataloged.
	List(ctx context.Context) ([]node.Id, error)
	// Has reports whether an exact Id is cataloged.
	Has(ctx context.Context, id node.Id) (bool, error)
	// Open returns the manifest for id.
	Open(ctx context.Context, id node.Id) (node.Artifact, error)
	// Save records a manifest, after verifying every referenced layer
	// digest already has backing bytes. Returns ErrLayerMissing
	// otherwise.
	Save(ctx context.Context, artifact node.Artifact) error
	// Del removes an Id from the catalog and, if no remaining manifest
	// references a given layer digest, deletes its blob bytes too.
	Del(ctx context.Context, id node.Id) error
	// Copy streams every layer of id plus its manifest from this
	// backend into dst.
	Copy(ctx context.Context, id node.Id, dst Backend) error
	// Prune removes every cataloged Id sharing id.Prefix() except id
	// itself.
	Prune(ctx context.Context, id node.Id) error
	// PruneAll removes every cataloged Id.
	PruneAll(ctx context.Context) error
	// Read opens a reader over one layer's raw bytes.
	Read(ctx context.Context, layer node.Layer) (io.ReadCloser, error)
	// StartLayer opens a writer to stage new layer bytes.
	StartLayer(ctx context.Context) (LayerWriter, error)
	// FinishLayer finalizes a staged layer, computing its digest and
	// returning the Layer record to attach to an Artifact.
	FinishLayer(ctx context.Context, mt node.MediaType, platform string, w LayerWriter) (node.Layer, error)
}

// LayerWriter accumulates bytes for a layer being staged. Write may be
// called any number of times before FinishLayer is called on the backend
// that produced it. It is a plain io.WriteCloser alias, not a distinct
// named interface, so it can cross package boundaries (e.g. into package
// source) without requiring a redundant adapter type.
type LayerWriter = io.WriteCloser
