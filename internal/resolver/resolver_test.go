package resolver

import (
	"context"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVendor struct {
	name    string
	options map[string][]string
	deps    map[string]map[string]string // "name@version" -> deps
}

func (f *fakeVendor) Name() string { return f.name }

func (f *fakeVendor) Options(ctx context.Context, name string) ([]*semver.Version, error) {
	var out []*semver.Version
	for _, v := range f.options[name] {
		sv, err := semver.NewVersion(v)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, nil
}

func (f *fakeVendor) Resolve(ctx context.Context, name string, version *semver.Version) (*node.Node, error) {
	return node.NewString(name + "@" + version.String()), nil
}

func (f *fakeVendor) Dependencies(ctx context.Context, name string, version *semver.Version) (map[string]string, error) {
	return f.deps[name+"@"+version.String()], nil
}

func TestResolvePrefersHighestVersion(t *testing.T) {
	v := &fakeVendor{name: "simple", options: map[string][]string{
		"lib": {"1.0.0", "1.2.0", "1.1.0"},
	}}
	r := New()
	r.Register(v)

	req, err := ParseRequirement("lib", ">=1.0.0", "")
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), []Want{{Addr: addr.Parse("//a"), Req: req}})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", res.Roots[addr.Parse("//a")].Version.String())
}

func TestResolveFollowsTransitiveDependencies(t *testing.T) {
	v := &fakeVendor{
		name: "simple",
		options: map[string][]string{
			"app": {"1.0.0"},
			"lib": {"1.0.0", "2.0.0"},
		},
		deps: map[string]map[string]string{
			"app@1.0.0": {"lib": "<2.0.0"},
		},
	}
	r := New()
	r.Register(v)

	req, err := ParseRequirement("app", "", "")
	require.NoError(t, err)
	res, err := r.Resolve(context.Background(), []Want{{Addr: addr.Parse("//a"), Req: req}})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", res.All["lib"].Version.String())
}

func TestResolveUnsatisfiableReturnsError(t *testing.T) {
	v := &fakeVendor{name: "simple", options: map[string][]string{"lib": {"1.0.0"}}}
	r := New()
	r.Register(v)

	req, err := ParseRequirement("lib", ">=2.0.0", "")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), []Want{{Addr: addr.Parse("//a"), Req: req}})
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestResolveUnknownNameErrors(t *testing.T) {
	r := New()
	r.Register(&fakeVendor{name: "empty"})
	req, err := ParseRequirement("ghost", "", "")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), []Want{{Addr: addr.Parse("//a"), Req: req}})
	assert.ErrorIs(t, err, ErrUnresolvable)
}
