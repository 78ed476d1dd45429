// Package coreplugin implements the one plugin that is always registered,
// in process, before a project loads: the "local"/"bolt" storage
// backends, the "local" and "container" environment farms, a "local"
// path-based source, an "import" transform, a "script" transform, and a
// "simple" in-memory vendor. These are exactly the capability kinds the
// original ships compiled directly into the edo binary rather than loaded
// as a sandboxed plugin.
package coreplugin

import (
	"context"
	"fmt"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/containerdenv"
	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/node"
	"github.com/cuemby/edo/internal/resolver"
	"github.com/cuemby/edo/internal/source"
	"github.com/cuemby/edo/internal/storage"
	"github.com/cuemby/edo/internal/transform"
)

// Plugin is the in-process core plugin. Unlike SandboxedPlugin it never
// crosses a process boundary, so every Create* call constructs a real
// local object directly.
type Plugin struct {
	localRoot string
}

// New returns a core plugin that roots filesystem-backed local backends
// under localRoot (typically .edo/storage).
func New(localRoot string) *Plugin {
	return &Plugin{localRoot: localRoot}
}

func (p *Plugin) Fetch(ctx context.Context) error { return nil }
func (p *Plugin) Setup(ctx context.Context) error { return nil }

func (p *Plugin) Supports(component node.Component, kind string) bool {
	switch component {
	case node.ComponentStorageBackend:
		return kind == "local" || kind == "bolt"
	case node.ComponentEnvironment:
		return kind == "local" || kind == "container"
	case node.ComponentSource:
		return kind == "local"
	case node.ComponentTransform:
		return kind == "import" || kind == "script"
	case node.ComponentVendor:
		return kind == "simple"
	}
	return false
}

func (p *Plugin) CreateStorage(ctx context.Context, a addr.Addr, def *node.Node) (storage.Backend, error) {
	table, _ := def.AsTable()
	pathNode, ok := table["path"]
	path := p.localRoot
	if ok {
		if s, ok := pathNode.AsString(); ok {
			path = s
		}
	}
	kind, _ := def.AsDefinition()
	if kind != nil && kind.Kind == "bolt" {
		return storage.NewBoltBackend(path)
	}
	return storage.NewLocalBackend(path)
}

func (p *Plugin) CreateFarm(ctx context.Context, a addr.Addr, def *node.Node) (environment.Farm, error) {
	defn, _ := def.AsDefinition()
	if defn != nil && defn.Kind == "container" {
		table, _ := def.AsTable()
		image, _ := stringField(table, "image")
		if image == "" {
			return nil, fmt.Errorf("coreplugin: container farm at %s missing required %q field", a, "image")
		}
		socket, _ := stringField(table, "socket")
		return containerdenv.NewFarm(socket, image), nil
	}
	return environment.NewLocalFarm(), nil
}

func stringField(table map[string]*node.Node, key string) (string, bool) {
	n, ok := table[key]
	if !ok {
		return "", false
	}
	return n.AsString()
}

func (p *Plugin) CreateSource(ctx context.Context, a addr.Addr, def *node.Node) (source.Source, error) {
	table, _ := def.AsTable()
	pathNode, ok := table["path"]
	if !ok {
		return nil, fmt.Errorf("coreplugin: local source at %s missing required %q field", a, "path")
	}
	path, _ := pathNode.AsString()
	return NewLocalSource(a, path), nil
}

func (p *Plugin) CreateTransform(ctx context.Context, a addr.Addr, def *node.Node) (transform.Transform, error) {
	defn, ok := def.AsDefinition()
	if !ok {
		return nil, fmt.Errorf("coreplugin: transform definition expected at %s", a)
	}
	switch defn.Kind {
	case "import":
		return NewImportTransform(a, defn)
	case "script":
		return NewScriptTransform(a, defn)
	default:
		return nil, fmt.Errorf("coreplugin: unknown transform kind %q", defn.Kind)
	}
}

func (p *Plugin) CreateVendor(ctx context.Context, a addr.Addr, def *node.Node) (resolver.Vendor, error) {
	return NewSimpleVendor(a.Leaf(), def)
}
