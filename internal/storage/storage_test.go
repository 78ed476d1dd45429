package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cuemby/edo/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveTextArtifact(t *testing.T, ctx context.Context, b Backend, id node.Id, text string) node.Artifact {
	t.Helper()
	w, err := b.StartLayer(ctx)
	require.NoError(t, err)
	_, err = io.Copy(w, strings.NewReader(text))
	require.NoError(t, err)
	layer, err := b.FinishLayer(ctx, node.MediaType{Kind: node.KindFile}, "", w)
	require.NoError(t, err)
	artifact := node.Artifact{
		MediaType: node.MediaType{Kind: node.KindManifest},
		Config:    node.Config{ID: id},
		Layers:    []node.Layer{layer},
	}
	require.NoError(t, b.Save(ctx, artifact))
	return artifact
}

func TestLocalBackendSaveOpenDel(t *testing.T) {
	ctx := context.Background()
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	id := node.Id{Name: "widget", Version: "1.0.0"}
	saveTextArtifact(t, ctx, b, id, "hello world")

	has, err := b.Has(ctx, id)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := b.Open(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.Config.ID)

	require.NoError(t, b.Del(ctx, id))
	has, _ = b.Has(ctx, id)
	assert.False(t, has)
}

func TestLocalBackendSaveRejectsMissingLayer(t *testing.T) {
	ctx := context.Background()
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	artifact := node.Artifact{
		Config: node.Config{ID: node.Id{Name: "ghost"}},
		Layers: []node.Layer{{Digest: node.NewLayerDigest("0000")}},
	}
	err = b.Save(ctx, artifact)
	assert.ErrorIs(t, err, ErrLayerMissing)
}

func TestLocalBackendPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewLocalBackend(dir)
	require.NoError(t, err)
	id := node.Id{Name: "persist"}
	saveTextArtifact(t, ctx, b, id, "data")

	b2, err := NewLocalBackend(dir)
	require.NoError(t, err)
	has, err := b2.Has(ctx, id)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestBoltBackendSaveOpenDel(t *testing.T) {
	ctx := context.Background()
	b, err := NewBoltBackend(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer b.Close()

	id := node.Id{Name: "widget", Version: "2.0.0"}
	saveTextArtifact(t, ctx, b, id, "bolt contents")

	has, _ := b.Has(ctx, id)
	assert.True(t, has)
	require.NoError(t, b.Del(ctx, id))
	has, _ = b.Has(ctx, id)
	assert.False(t, has)
}

func TestStorageFetchSourceDownloadsOnce(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	src, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	id := node.Id{Name: "dep"}
	saveTextArtifact(t, ctx, src, id, "source bytes")

	s := New(local)
	s.AddSourceCache("vendor", src)

	a, err := s.FetchSource(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, a.Config.ID)

	has, _ := local.Has(ctx, id)
	assert.True(t, has, "FetchSource should download into the local cache")
}

func TestStorageFindBuildLocalShortCircuits(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	build, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	id := node.Id{Name: "built"}
	saveTextArtifact(t, ctx, local, id, "already built")

	s := New(local)
	s.SetBuildCache(build)

	_, hit, err := s.FindBuild(ctx, id, true)
	require.NoError(t, err)
	assert.True(t, hit)

	buildHas, _ := build.Has(ctx, id)
	assert.False(t, buildHas, "local hit should never touch the build cache")
}

func TestPruneKeepsTargetDigestWithinSamePrefix(t *testing.T) {
	ctx := context.Background()
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	old := node.Id{Name: "lib", Version: "1.0.0", Digest: "aaaa"}
	keep := node.Id{Name: "lib", Version: "1.0.0", Digest: "bbbb"}
	require.Equal(t, old.Prefix(), keep.Prefix())
	saveTextArtifact(t, ctx, b, old, "old")
	saveTextArtifact(t, ctx, b, keep, "new")

	require.NoError(t, b.Prune(ctx, keep))

	hasOld, _ := b.Has(ctx, old)
	hasKeep, _ := b.Has(ctx, keep)
	assert.False(t, hasOld)
	assert.True(t, hasKeep)
}
