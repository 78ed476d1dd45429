package environment

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandVariableSubstitution(t *testing.T) {
	c := NewCommand("build")
	c.Set("version", "1.2.3")
	c.Run("echo building {{version}}")
	assert.Contains(t, c.Script(), "echo building 1.2.3")
}

func TestCommandUnknownVariableLeftAlone(t *testing.T) {
	c := NewCommand("build")
	c.Run("echo {{missing}}")
	assert.Contains(t, c.Script(), "{{missing}}")
}

func TestLocalEnvironmentRunsScript(t *testing.T) {
	ctx := context.Background()
	farm := NewLocalFarm()
	root := t.TempDir()
	env, err := farm.Create(ctx, root)
	require.NoError(t, err)
	require.NoError(t, env.Up(ctx))

	marker := filepath.Join(root, "marker")
	c := NewCommand("touch-marker")
	c.Run("touch " + marker)

	var buf nopWriter
	ok, err := env.Run(ctx, &buf, "touch-marker", ".", c)
	require.NoError(t, err)
	assert.True(t, ok)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
