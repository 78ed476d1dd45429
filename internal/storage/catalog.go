package storage

import "github.com/cuemby/edo/internal/node"

// all is the catalog key that indexes every Id currently cataloged, used by
// List.
const all = "*"

// Catalog is the in-memory index shared by both first-party backends: an
// Id index grouped by prefix (for Prune) plus an "everything" bucket (for
// List), the full manifest keyed by Id, and a blob refcount so a backend
// knows when it is safe to physically delete a blob.
type Catalog struct {
	byPrefix  map[string]map[node.Id]struct{}
	manifests map[node.Id]node.Artifact
	blobRefs  map[node.LayerDigest]int64
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byPrefix:  map[string]map[node.Id]struct{}{},
		manifests: map[node.Id]node.Artifact{},
		blobRefs:  map[node.LayerDigest]int64{},
	}
}

// List returns every cataloged Id.
func (c *Catalog) List() []node.Id {
	return c.idsIn(all)
}

// Matching returns every Id sharing prefix's Prefix() grouping.
func (c *Catalog) Matching(prefix string) []node.Id {
	return c.idsIn(prefix)
}

func (c *Catalog) idsIn(key string) []node.Id {
	bucket := c.byPrefix[key]
	out := make([]node.Id, 0, len(bucket))
	for id := range bucket {
		out = append(out, id)
	}
	return out
}

// Has reports whether id is cataloged.
func (c *Catalog) Has(id node.Id) bool {
	_, ok := c.manifests[id]
	return ok
}

// Get returns the manifest for id.
func (c *Catalog) Get(id node.Id) (node.Artifact, bool) {
	a, ok := c.manifests[id]
	return a, ok
}

// Add records artifact under both the "*" bucket and its prefix bucket,
// and increments the refcount of every layer digest it references.
func (c *Catalog) Add(artifact node.Artifact) {
	id := artifact.Config.ID
	c.insert(all, id)
	c.insert(id.Prefix(), id)
	c.manifests[id] = artifact
	for _, l := range artifact.Layers {
		c.blobRefs[l.Digest]++
	}
}

func (c *Catalog) insert(key string, id node.Id) {
	bucket, ok := c.byPrefix[key]
	if !ok {
		bucket = map[node.Id]struct{}{}
		c.byPrefix[key] = bucket
	}
	bucket[id] = struct{}{}
}

// Count returns the current refcount of a layer digest.
func (c *Catalog) Count(digest node.LayerDigest) int64 {
	return c.blobRefs[digest]
}

// Del removes id from the catalog, decrementing (and, once at zero,
// forgetting) the refcount of every layer digest it referenced. It returns
// the list of layer digests whose refcount dropped to zero, i.e. the blobs
// the caller should now delete from disk.
func (c *Catalog) Del(id node.Id) []node.LayerDigest {
	artifact, ok := c.manifests[id]
	if !ok {
		return nil
	}
	delete(c.manifests, id)
	c.remove(all, id)
	prefix := id.Prefix()
	c.remove(prefix, id)
	if bucket, ok := c.byPrefix[prefix]; ok && len(bucket) == 0 {
		delete(c.byPrefix, prefix)
	}

	var freed []node.LayerDigest
	for _, l := range artifact.Layers {
		c.blobRefs[l.Digest]--
		if c.blobRefs[l.Digest] <= 0 {
			delete(c.blobRefs, l.Digest)
			freed = append(freed, l.Digest)
		}
	}
	return freed
}

func (c *Catalog) remove(key string, id node.Id) {
	if bucket, ok := c.byPrefix[key]; ok {
		delete(bucket, id)
	}
}
