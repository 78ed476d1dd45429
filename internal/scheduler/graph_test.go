package scheduler

import (
	"context"
	"testing"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/node"
	"github.com/cuemby/edo/internal/transform"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct{}

func (fakeCache) FindBuild(ctx context.Context, id node.Id, sync bool) (node.Artifact, bool, error) {
	return node.Artifact{}, false, nil
}
func (fakeCache) UploadBuild(ctx context.Context, id node.Id) error { return nil }

type fakeEnvs struct{ farm environment.Farm }

func (f fakeEnvs) Farm(ctx context.Context, a addr.Addr) (environment.Farm, error) {
	return f.farm, nil
}

// stubTransform always succeeds without touching the environment, enough
// to exercise the scheduler's dispatch/fan-out logic in isolation from any
// particular transform kind.
type stubTransform struct {
	name    string
	env     addr.Addr
	depends []addr.Addr
	ran     *bool
}

func (t *stubTransform) Environment() addr.Addr { return t.env }
func (t *stubTransform) UniqueID(ctx context.Context) (node.Id, error) {
	return node.Id{Name: t.name}, nil
}
func (t *stubTransform) Depends() []addr.Addr { return t.depends }
func (t *stubTransform) Prepare(ctx context.Context, log zerolog.Logger) error { return nil }
func (t *stubTransform) Stage(ctx context.Context, log zerolog.Logger, env environment.Environment) error {
	return nil
}
func (t *stubTransform) Transform(ctx context.Context, log zerolog.Logger, env environment.Environment) transform.Status {
	if t.ran != nil {
		*t.ran = true
	}
	return transform.Succeeded(node.Artifact{Config: node.Config{ID: node.Id{Name: t.name}}})
}
func (t *stubTransform) CanShell() bool                          { return false }
func (t *stubTransform) Shell(env environment.Environment) error { return nil }

func TestGraphAddIsIdempotent(t *testing.T) {
	g := NewGraph(4)
	a := addr.Parse("//t/one")
	tr := &stubTransform{name: "one", env: addr.Parse("//env/local")}
	require.NoError(t, g.Add(a, tr, nil))
	require.NoError(t, g.Add(a, tr, nil))
	assert.Len(t, g.nodes, 1)
}

func TestGraphRunFansOutToChildren(t *testing.T) {
	g := NewGraph(2)
	base := addr.Parse("//t/base")
	top := addr.Parse("//t/top")
	localEnv := addr.Parse("//env/local")

	baseRan, topRan := false, false
	baseT := &stubTransform{name: "base", env: localEnv, ran: &baseRan}
	topT := &stubTransform{name: "top", env: localEnv, depends: []addr.Addr{base}, ran: &topRan}

	resolve := func(a addr.Addr) (transform.Transform, error) {
		if a == base {
			return baseT, nil
		}
		return nil, assert.AnError
	}

	require.NoError(t, g.Add(top, topT, resolve))
	err := g.Run(context.Background(), fakeCache{}, fakeEnvs{farm: environment.NewLocalFarm()}, zerolog.Nop(), RunOptions{WorkDir: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, baseRan)
	assert.True(t, topRan)
	assert.Equal(t, StatusSuccess, g.nodes[g.index[base]].Status())
	assert.Equal(t, StatusSuccess, g.nodes[g.index[top]].Status())
}
