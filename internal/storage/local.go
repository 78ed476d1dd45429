package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/edo/internal/node"
	"lukechampine.com/blake3"
)

// LocalBackend is a filesystem-backed Backend: a JSON catalog file plus a
// content-addressed blob directory (blobs/blake3/<hex digest>), grounded on
// the original implementation's local cache layout.
type LocalBackend struct {
	dir string

	mu      sync.RWMutex
	catalog *Catalog
}

// NewLocalBackend opens (creating if absent) a LocalBackend rooted at dir.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(filepath.Join(dir, "blobs", "blake3"), 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating blob dir: %w", err)
	}
	b := &LocalBackend{dir: dir, catalog: NewCatalog()}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *LocalBackend) catalogPath() string { return filepath.Join(b.dir, "catalog.json") }

func (b *LocalBackend) blobPath(digest node.LayerDigest) string {
	return filepath.Join(b.dir, "blobs", "blake3", hexOf(digest))
}

func hexOf(digest node.LayerDigest) string {
	s := string(digest)
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[i+1:]
		}
	}
	return s
}

type catalogFile struct {
	Manifests map[string]node.Artifact `json:"manifests"`
}

func (b *LocalBackend) load() error {
	f, err := os.Open(b.catalogPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: opening catalog: %w", err)
	}
	defer f.Close()

	var cf catalogFile
	if err := json.NewDecoder(f).Decode(&cf); err != nil {
		return fmt.Errorf("storage: decoding catalog: %w", err)
	}
	for _, a := range cf.Manifests {
		b.catalog.Add(a)
	}
	return nil
}

func (b *LocalBackend) flush() error {
	cf := catalogFile{Manifests: map[string]node.Artifact{}}
	for _, id := range b.catalog.List() {
		a, _ := b.catalog.Get(id)
		cf.Manifests[id.String()] = a
	}
	tmp := b.catalogPath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("storage: writing catalog: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cf); err != nil {
		f.Close()
		return fmt.Errorf("storage: encoding catalog: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, b.catalogPath())
}

func (b *LocalBackend) List(ctx context.Context) ([]node.Id, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.catalog.List(), nil
}

func (b *LocalBackend) Has(ctx context.Context, id node.Id) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.catalog.Has(id), nil
}

func (b *LocalBackend) Open(ctx context.Context, id node.Id) (node.Artifact, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.catalog.Get(id)
	if !ok {
		return node.Artifact{}, ErrNotFound
	}
	return a, nil
}

// Save validates that every referenced layer already exists as a blob file
// before admitting the manifest to the catalog.
func (b *LocalBackend) Save(ctx context.Context, artifact node.Artifact) error {
	for _, l := range artifact.Layers {
		if _, err := os.Stat(b.blobPath(l.Digest)); err != nil {
			return fmt.Errorf("%w: %s", ErrLayerMissing, l.Digest)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalog.Add(artifact)
	return b.flush()
}

func (b *LocalBackend) Del(ctx context.Context, id node.Id) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	freed := b.catalog.Del(id)
	for _, d := range freed {
		_ = os.Remove(b.blobPath(d))
	}
	return b.flush()
}

func (b *LocalBackend) Copy(ctx context.Context, id node.Id, dst Backend) error {
	a, err := b.Open(ctx, id)
	if err != nil {
		return err
	}
	for _, l := range a.Layers {
		if err := copyLayer(ctx, b, dst, l); err != nil {
			return err
		}
	}
	return dst.Save(ctx, a)
}

func (b *LocalBackend) Prune(ctx context.Context, id node.Id) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, other := range b.catalog.Matching(id.Prefix()) {
		if other == id {
			continue
		}
		for _, d := range b.catalog.Del(other) {
			_ = os.Remove(b.blobPath(d))
		}
	}
	return b.flush()
}

func (b *LocalBackend) PruneAll(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.catalog.List() {
		for _, d := range b.catalog.Del(id) {
			_ = os.Remove(b.blobPath(d))
		}
	}
	return b.flush()
}

func (b *LocalBackend) Read(ctx context.Context, layer node.Layer) (io.ReadCloser, error) {
	f, err := os.Open(b.blobPath(layer.Digest))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// localLayerWriter stages bytes into a temp file until FinishLayer computes
// the final digest and renames it into place.
type localLayerWriter struct {
	f    *os.File
	hash *blake3.Hasher
	size int64
}

func (w *localLayerWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.hash.Write(p[:n])
	w.size += int64(n)
	return n, err
}

func (w *localLayerWriter) Close() error { return w.f.Close() }

func (b *LocalBackend) StartLayer(ctx context.Context) (LayerWriter, error) {
	f, err := os.CreateTemp(filepath.Join(b.dir, "blobs", "blake3"), "tmp-*")
	if err != nil {
		return nil, err
	}
	return &localLayerWriter{f: f, hash: blake3.New(32, nil)}, nil
}

func (b *LocalBackend) FinishLayer(ctx context.Context, mt node.MediaType, platform string, w LayerWriter) (node.Layer, error) {
	lw, ok := w.(*localLayerWriter)
	if !ok {
		return node.Layer{}, fmt.Errorf("storage: FinishLayer called with foreign writer")
	}
	tmpPath := lw.f.Name()
	if err := lw.f.Close(); err != nil {
		return node.Layer{}, err
	}
	digest := node.NewLayerDigest(hex.EncodeToString(lw.hash.Sum(nil)))
	target := b.blobPath(digest)
	if tmpPath != target {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			if err := os.Rename(tmpPath, target); err != nil {
				return node.Layer{}, err
			}
		} else {
			_ = os.Remove(tmpPath)
		}
	}
	return node.Layer{MediaType: mt, Digest: digest, Size: lw.size, Platform: platform}, nil
}

// copyLayer streams one layer's bytes from src into dst via src.Read and
// dst's staged-writer path, used by both Backend.Copy and Storage's
// parallel download/upload helpers.
func copyLayer(ctx context.Context, src, dst Backend, l node.Layer) error {
	r, err := src.Read(ctx, l)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := dst.StartLayer(ctx)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	_, err = dst.FinishLayer(ctx, l.MediaType, l.Platform, w)
	return err
}
