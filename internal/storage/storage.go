package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/edo/internal/metrics"
	"github.com/cuemby/edo/internal/node"
	"golang.org/x/sync/errgroup"
)

// ChildError collects the independent failures of a fanned-out operation
// (e.g. copying several layers in parallel) into a single error, and
// supports errors.Is/As via Unwrap() []error.
type ChildError struct {
	Errs []error
}

func (c *ChildError) Error() string {
	return fmt.Sprintf("storage: %d of a parallel operation's children failed: %v", len(c.Errs), c.Errs[0])
}

func (c *ChildError) Unwrap() []error { return c.Errs }

// Storage aggregates the local cache, an ordered list of source caches, an
// optional build cache, and an optional output cache, matching the four
// backend roles of the project's storage model. All fields are guarded by
// a single RWMutex; the backends guard their own internals.
type Storage struct {
	mu     sync.RWMutex
	local  Backend
	source []namedBackend
	build  Backend
	output Backend
}

type namedBackend struct {
	name    string
	backend Backend
}

// New returns a Storage whose only configured tier is the local cache.
func New(local Backend) *Storage {
	return &Storage{local: local}
}

// AddSourceCache registers a named source cache at the back of the search
// order (consulted last).
func (s *Storage) AddSourceCache(name string, b Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = append(s.source, namedBackend{name, b})
}

// AddSourceCacheFront registers a named source cache at the front of the
// search order (consulted first), used when a project wants to shadow the
// default vendor caches with a faster or more specific one.
func (s *Storage) AddSourceCacheFront(name string, b Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = append([]namedBackend{{name, b}}, s.source...)
}

// RemoveSourceCache unregisters a source cache by name.
func (s *Storage) RemoveSourceCache(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.source[:0]
	for _, nb := range s.source {
		if nb.name != name {
			out = append(out, nb)
		}
	}
	s.source = out
}

// SetBuildCache installs the build-result cache tier.
func (s *Storage) SetBuildCache(b Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.build = b
}

// SetOutputCache installs the published-output cache tier.
func (s *Storage) SetOutputCache(b Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = b
}

func (s *Storage) localBackend() Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local
}

// SafeOpen/SafeRead/SafeSave/SafeStartLayer/SafeFinishLayer operate only
// against the local backend — "safe" in that they never reach out over the
// network implied by a source/build/output backend.

func (s *Storage) SafeOpen(ctx context.Context, id node.Id) (node.Artifact, error) {
	return s.localBackend().Open(ctx, id)
}

func (s *Storage) SafeRead(ctx context.Context, l node.Layer) (io.ReadCloser, error) {
	return s.localBackend().Read(ctx, l)
}

func (s *Storage) SafeSave(ctx context.Context, artifact node.Artifact) error {
	return s.localBackend().Save(ctx, artifact)
}

func (s *Storage) SafeStartLayer(ctx context.Context) (LayerWriter, error) {
	return s.localBackend().StartLayer(ctx)
}

func (s *Storage) SafeFinishLayer(ctx context.Context, mt node.MediaType, platform string, w LayerWriter) (node.Layer, error) {
	l, err := s.localBackend().FinishLayer(ctx, mt, platform, w)
	if err != nil {
		return node.Layer{}, err
	}
	metrics.StorageBlobsTotal.Inc()
	metrics.StorageBytesTotal.Add(float64(l.Size))
	return l, nil
}

// download pulls every layer of id from src into the local backend in
// parallel, then saves the manifest locally.
func (s *Storage) download(ctx context.Context, id node.Id, src Backend) (node.Artifact, error) {
	a, err := src.Open(ctx, id)
	if err != nil {
		return node.Artifact{}, err
	}
	local := s.localBackend()
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var errs []error
	for _, l := range a.Layers {
		l := l
		g.Go(func() error {
			if err := copyLayer(gctx, src, local, l); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return node.Artifact{}, &ChildError{Errs: errs}
	}
	if err := local.Save(ctx, a); err != nil {
		return node.Artifact{}, err
	}
	return a, nil
}

// upload pushes every layer of a local id to dst in parallel, then saves
// the manifest there.
func (s *Storage) upload(ctx context.Context, id node.Id, dst Backend) error {
	local := s.localBackend()
	a, err := local.Open(ctx, id)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var errs []error
	for _, l := range a.Layers {
		l := l
		g.Go(func() error {
			if err := copyLayer(gctx, local, dst, l); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &ChildError{Errs: errs}
	}
	return dst.Save(ctx, a)
}

// FetchSource returns id's artifact, preferring the local cache, then
// searching registered source caches in order and downloading the first
// hit into the local cache.
func (s *Storage) FetchSource(ctx context.Context, id node.Id) (node.Artifact, error) {
	local := s.localBackend()
	if ok, _ := local.Has(ctx, id); ok {
		return local.Open(ctx, id)
	}
	src, err := s.findSource(ctx, id)
	if err != nil {
		return node.Artifact{}, err
	}
	return s.download(ctx, id, src)
}

func (s *Storage) findSource(ctx context.Context, id node.Id) (Backend, error) {
	s.mu.RLock()
	caches := append([]namedBackend{}, s.source...)
	s.mu.RUnlock()
	for _, nb := range caches {
		if ok, _ := nb.backend.Has(ctx, id); ok {
			return nb.backend, nil
		}
	}
	return nil, fmt.Errorf("storage: no source cache has %s: %w", id, ErrNotFound)
}

// FindBuild looks for a previously built artifact for id: a local hit
// always short-circuits; otherwise, if a build cache is configured and has
// it, sync controls whether the artifact is also pulled into the local
// cache (sync=true) or merely reported present (sync=false, used by the
// scheduler to decide whether a node needs building without paying the
// download cost until it actually runs).
func (s *Storage) FindBuild(ctx context.Context, id node.Id, sync bool) (node.Artifact, bool, error) {
	local := s.localBackend()
	if ok, _ := local.Has(ctx, id); ok {
		a, err := local.Open(ctx, id)
		return a, true, err
	}
	s.mu.RLock()
	build := s.build
	s.mu.RUnlock()
	if build == nil {
		return node.Artifact{}, false, nil
	}
	ok, err := build.Has(ctx, id)
	if err != nil || !ok {
		return node.Artifact{}, false, err
	}
	if !sync {
		a, err := build.Open(ctx, id)
		return a, true, err
	}
	a, err := s.download(ctx, id, build)
	return a, true, err
}

// UploadBuild pushes a freshly built local artifact to the build cache, if
// one is configured.
func (s *Storage) UploadBuild(ctx context.Context, id node.Id) error {
	s.mu.RLock()
	build := s.build
	s.mu.RUnlock()
	if build == nil {
		return nil
	}
	return s.upload(ctx, id, build)
}

// UploadOutput pushes a local artifact to the output cache, if one is
// configured.
func (s *Storage) UploadOutput(ctx context.Context, id node.Id) error {
	s.mu.RLock()
	output := s.output
	s.mu.RUnlock()
	if output == nil {
		return nil
	}
	return s.upload(ctx, id, output)
}

// LocalList returns every Id currently in the local cache, used by the
// "list" operation to show what's been built or fetched so far.
func (s *Storage) LocalList(ctx context.Context) ([]node.Id, error) {
	return s.localBackend().List(ctx)
}

// PruneLocal removes every other version of id from the local cache.
func (s *Storage) PruneLocal(ctx context.Context, id node.Id) error {
	return s.localBackend().Prune(ctx, id)
}

// PruneLocalAll wipes the local cache entirely.
func (s *Storage) PruneLocalAll(ctx context.Context) error {
	return s.localBackend().PruneAll(ctx)
}
