package ctx

import (
	"context"
	"testing"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCtx(t *testing.T) *Ctx {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StorageDir = t.TempDir()
	cfg.WorkDir = t.TempDir()
	c, err := New(cfg, map[string]string{"env": "test"})
	require.NoError(t, err)
	return c
}

func TestNewRegistersCorePluginAndLocalFarm(t *testing.T) {
	c := newTestCtx(t)
	f, err := c.Farm(context.Background(), addr.Parse("//env/local"))
	require.NoError(t, err)
	assert.NotNil(t, f)

	_, err = c.Farm(context.Background(), addr.Parse("//env/missing"))
	assert.Error(t, err)
}

func TestConfigureStorageViaRegistry(t *testing.T) {
	c := newTestCtx(t)
	def := node.NewDefinition(node.ComponentStorageBackend, "local", "cache", map[string]*node.Node{
		"path": node.NewString(t.TempDir()),
	})
	backend, err := ConfigureStorage(c, addr.Parse("//storage/cache"), "local", def)
	require.NoError(t, err)
	ids, err := backend.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestArgLookup(t *testing.T) {
	c := newTestCtx(t)
	v, ok := c.Arg("env")
	require.True(t, ok)
	assert.Equal(t, "test", v)
	_, ok = c.Arg("missing")
	assert.False(t, ok)
}

func TestListEmptyLocalCache(t *testing.T) {
	c := newTestCtx(t)
	ids, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
