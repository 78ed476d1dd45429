package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/edo/internal/node"
	"go.etcd.io/bbolt"
	"lukechampine.com/blake3"
)

var (
	bucketManifests = []byte("manifests")
	bucketBlobs     = []byte("blobs")
)

// BoltBackend is a Backend implementation built on go.etcd.io/bbolt,
// grounded on the teacher's BoltStore (pkg/storage/boltdb.go): one bucket
// holds JSON-encoded manifests keyed by Id string, the other holds raw
// blob bytes keyed by hex digest. It is used for the build/output/source
// cache roles, where an embedded single-file database is preferable to a
// directory of loose blob files.
type BoltBackend struct {
	db *bbolt.DB

	mu      sync.RWMutex
	catalog *Catalog
}

// NewBoltBackend opens (creating if absent) a bbolt-backed Backend at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: opening bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketManifests); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	b := &BoltBackend{db: db, catalog: NewCatalog()}
	if err := b.load(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *BoltBackend) Close() error { return b.db.Close() }

func (b *BoltBackend) load() error {
	return b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketManifests).ForEach(func(_, v []byte) error {
			var a node.Artifact
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			b.catalog.Add(a)
			return nil
		})
	})
}

func (b *BoltBackend) List(ctx context.Context) ([]node.Id, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.catalog.List(), nil
}

func (b *BoltBackend) Has(ctx context.Context, id node.Id) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.catalog.Has(id), nil
}

func (b *BoltBackend) Open(ctx context.Context, id node.Id) (node.Artifact, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.catalog.Get(id)
	if !ok {
		return node.Artifact{}, ErrNotFound
	}
	return a, nil
}

func (b *BoltBackend) Save(ctx context.Context, artifact node.Artifact) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.db.View(func(tx *bbolt.Tx) error {
		blobs := tx.Bucket(bucketBlobs)
		for _, l := range artifact.Layers {
			if blobs.Get([]byte(hexOf(l.Digest))) == nil {
				return fmt.Errorf("%w: %s", ErrLayerMissing, l.Digest)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketManifests).Put([]byte(artifact.Config.ID.String()), encoded)
	})
	if err != nil {
		return err
	}
	b.catalog.Add(artifact)
	return nil
}

func (b *BoltBackend) Del(ctx context.Context, id node.Id) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	freed := b.catalog.Del(id)
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketManifests).Delete([]byte(id.String())); err != nil {
			return err
		}
		blobs := tx.Bucket(bucketBlobs)
		for _, d := range freed {
			if err := blobs.Delete([]byte(hexOf(d))); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltBackend) Copy(ctx context.Context, id node.Id, dst Backend) error {
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

func (b *BoltBackend) Prune(ctx context.Context, id node.Id) error {
	b.mu.Lock()
	toDelete := append([]node.Id{}, b.catalog.Matching(id.Prefix())...)
	b.mu.Unlock()
	for _, other := range toDelete {
		if other == id {
			continue
		}
		if err := b.Del(ctx, other); err != nil {
			return err
		}
	}
	return nil
}

func (b *BoltBackend) PruneAll(ctx context.Context) error {
	b.mu.Lock()
	all := append([]node.Id{}, b.catalog.List()...)
	b.mu.Unlock()
	for _, id := range all {
		if err := b.Del(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (b *BoltBackend) Read(ctx context.Context, layer node.Layer) (io.ReadCloser, error) {
	var buf []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(hexOf(layer.Digest)))
		if v == nil {
			return ErrNotFound
		}
		buf = append(buf, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

type boltLayerWriter struct {
	buf  bytes.Buffer
	hash *blake3.Hasher
}

func (w *boltLayerWriter) Write(p []byte) (int, error) {
	w.hash.Write(p)
	return w.buf.Write(p)
}

func (w *boltLayerWriter) Close() error { return nil }

func (b *BoltBackend) StartLayer(ctx context.Context) (LayerWriter, error) {
	return &boltLayerWriter{hash: blake3.New(32, nil)}, nil
}

func (b *BoltBackend) FinishLayer(ctx context.Context, mt node.MediaType, platform string, w LayerWriter) (node.Layer, error) {
	bw, ok := w.(*boltLayerWriter)
	if !ok {
		return node.Layer{}, fmt.Errorf("storage: FinishLayer called with foreign writer")
	}
	digest := node.NewLayerDigest(hex.EncodeToString(bw.hash.Sum(nil)))
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(hexOf(digest)), bw.buf.Bytes())
	})
	if err != nil {
		return node.Layer{}, err
	}
	return node.Layer{MediaType: mt, Digest: digest, Size: int64(bw.buf.Len()), Platform: platform}, nil
}
