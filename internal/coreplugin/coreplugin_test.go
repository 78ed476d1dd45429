package coreplugin

import (
	"context"
	"testing"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/node"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() zerolog.Logger { return zerolog.Nop() }

func TestPluginSupports(t *testing.T) {
	p := New(t.TempDir())
	assert.True(t, p.Supports(node.ComponentStorageBackend, "local"))
	assert.True(t, p.Supports(node.ComponentTransform, "script"))
	assert.False(t, p.Supports(node.ComponentTransform, "unknown"))
}

func TestCreateStorageLocal(t *testing.T) {
	p := New(t.TempDir())
	def := node.NewDefinition(node.ComponentStorageBackend, "local", "cache", map[string]*node.Node{
		"path": node.NewString(t.TempDir()),
	})
	b, err := p.CreateStorage(context.Background(), addr.Parse("//cache"), def)
	require.NoError(t, err)
	ids, err := b.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestImportTransformSucceeds(t *testing.T) {
	def := node.NewDefinition(node.ComponentTransform, "import", "vendor-files", map[string]*node.Node{
		"environment": node.NewString("//env/local"),
	})
	defn, _ := def.AsDefinition()
	tr, err := NewImportTransform(addr.Parse("//t/import"), defn)
	require.NoError(t, err)
	status := tr.Transform(context.Background(), discardLogger(), nil)
	assert.Equal(t, 0, int(status.Kind))
}

func TestSimpleVendorOptionsAndDependencies(t *testing.T) {
	pkgTable := map[string]*node.Node{
		"versions": node.New(node.Data{Kind: node.KindList, List: []*node.Node{
			node.NewString("1.0.0"), node.NewString("1.1.0"),
		}}),
		"requires": node.New(node.Data{Kind: node.KindTable, Table: map[string]*node.Node{
			"base": node.NewString(">=1.0.0"),
		}}),
	}
	packages := node.New(node.Data{Kind: node.KindTable, Table: map[string]*node.Node{
		"widget": node.New(node.Data{Kind: node.KindTable, Table: pkgTable}),
	}})
	def := node.New(node.Data{Kind: node.KindTable, Table: map[string]*node.Node{
		"packages": packages,
	}})

	v, err := NewSimpleVendor("simple", def)
	require.NoError(t, err)
	opts, err := v.Options(context.Background(), "widget")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	deps, err := v.Dependencies(context.Background(), "widget", opts[0])
	require.NoError(t, err)
	assert.Equal(t, ">=1.0.0", deps["base"])
}
