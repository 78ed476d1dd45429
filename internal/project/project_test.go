package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/ctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadClassifiesBlocksByDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "root.edo.yaml", `
vendors:
  - name: widget
    kind: simple
    fields:
      packages:
        widget:
          versions: ["1.0.0"]
environments:
  - name: local
    kind: local
    fields: {}
transforms:
  - name: build
    kind: import
    fields:
      environment: "//env/local"
`)
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, sub, "leaf.edo.json", `{
  "transforms": [
    {"name": "leaf", "kind": "import", "fields": {"environment": "//env/local"}}
  ]
}`)

	p, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, p.Vendors, 1)
	assert.Len(t, p.Environments, 1)
	assert.Len(t, p.Transforms, 2)
	_, ok := p.Transforms[addr.Parse("//nested/leaf")]
	assert.True(t, ok)
}

func TestBuildResolvesWantsAndWritesLock(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "root.edo.yaml", `
vendors:
  - name: widgets
    kind: simple
    fields:
      packages:
        widget:
          versions: ["1.0.0", "1.1.0"]
environments:
  - name: local
    kind: local
    fields: {}
transforms:
  - name: build
    kind: import
    fields:
      environment: "//local"
    wants:
      - field: picked
        name: widget
        vendor: widgets
        requirement: ">=1.0.0"
`)

	p, err := Load(dir)
	require.NoError(t, err)

	cfg := ctx.DefaultConfig()
	cfg.StorageDir = t.TempDir()
	cfg.WorkDir = t.TempDir()
	c, err := ctx.New(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, p.Build(c, false))

	_, err = os.Stat(lockPath(dir))
	require.NoError(t, err)

	tr, ok := c.Transform(addr.Parse("//build"))
	require.True(t, ok)
	assert.NotNil(t, tr)

	require.NoError(t, c.Run(context.Background()))
}
