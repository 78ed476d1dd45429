// Package ctx wires every other package into one running instance: config,
// storage, the plugin registry, the build graph, and the live farms and
// transforms a loaded project has registered. It is named ctx rather than
// context to read naturally as ctx.Ctx at call sites while leaving the
// stdlib context.Context import unshadowed.
package ctx

import (
	"context"
	"fmt"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/coreplugin"
	"github.com/cuemby/edo/internal/elog"
	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/node"
	"github.com/cuemby/edo/internal/plugin"
	"github.com/cuemby/edo/internal/resolver"
	"github.com/cuemby/edo/internal/scheduler"
	"github.com/cuemby/edo/internal/source"
	"github.com/cuemby/edo/internal/storage"
	"github.com/cuemby/edo/internal/transform"
	"github.com/rs/zerolog"
)

// CorePluginAddr is the fixed address the always-registered core plugin is
// reachable at, used by project files that want an explicit "plugin/core:local"
// kind reference instead of relying on capability-based lookup.
var CorePluginAddr = addr.Parse("//plugin/core")

// Ctx is the live orchestrator instance: one per edo invocation.
type Ctx struct {
	Config   *Config
	Storage  *storage.Storage
	Plugins  *plugin.Registry
	Graph    *scheduler.Graph
	Resolver *resolver.Resolver
	Log      zerolog.Logger

	farms      *addrMap[environment.Farm]
	transforms *addrMap[transform.Transform]
	sources    *addrMap[source.Source]
	args       map[string]string
}

// New constructs a Ctx from cfg: initializes the global logger, opens the
// local storage backend, registers the core plugin, and builds an empty
// scheduler graph sized to cfg.BatchSize. Callers load a project into it
// afterward via project.Load (internal/project).
func New(cfg *Config, args map[string]string) (*Ctx, error) {
	elog.Init(elog.Config{Level: cfg.LogLevel, JSONOutput: cfg.JSON})

	local, err := storage.NewLocalBackend(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("ctx: opening local storage at %s: %w", cfg.StorageDir, err)
	}
	st := storage.New(local)

	registry := plugin.NewRegistry()
	registry.Add(CorePluginAddr, coreplugin.New(cfg.StorageDir))

	c := &Ctx{
		Config:     cfg,
		Storage:    st,
		Plugins:    registry,
		Graph:      scheduler.NewGraph(cfg.BatchSize),
		Resolver:   resolver.New(),
		Log:        elog.Logger,
		farms:      newAddrMap[environment.Farm](),
		transforms: newAddrMap[transform.Transform](),
		sources:    newAddrMap[source.Source](),
		args:       args,
	}

	localFarm, err := ConfigureFarm(c, addr.Parse("//env/local"), "local", nil)
	if err != nil {
		return nil, err
	}
	c.RegisterFarm(addr.Parse("//env/local"), localFarm)

	return c, nil
}

// Arg returns a CLI argument passed through from cmd/edo's flag parsing
// (project files reference these via a "wants" node resolved at load time).
func (c *Ctx) Arg(key string) (string, bool) {
	v, ok := c.args[key]
	return v, ok
}

// RegisterFarm/RegisterTransform/RegisterSource make a constructed
// component available for later lookup by address — used by the project
// loader as it walks definitions and by the core plugin's implicit local
// farm registration above.
func (c *Ctx) RegisterFarm(a addr.Addr, f environment.Farm) { c.farms.set(a, f) }

func (c *Ctx) RegisterTransform(a addr.Addr, t transform.Transform) { c.transforms.set(a, t) }

func (c *Ctx) RegisterSource(a addr.Addr, s source.Source) { c.sources.set(a, s) }

// Farm implements scheduler.EnvironmentFactory: it resolves a transform's
// declared environment address to the Farm registered at it.
func (c *Ctx) Farm(ctx context.Context, a addr.Addr) (environment.Farm, error) {
	f, ok := c.farms.get(a)
	if !ok {
		return nil, fmt.Errorf("ctx: no environment registered at %s", a)
	}
	return f, nil
}

// Transform looks up a previously registered transform by address.
func (c *Ctx) Transform(a addr.Addr) (transform.Transform, bool) { return c.transforms.get(a) }

// Source looks up a previously registered source by address.
func (c *Ctx) Source(a addr.Addr) (source.Source, bool) { return c.sources.get(a) }

// configure is the generic "configurable construction" path: it resolves
// the plugin that supports (component, kind) and asks create to turn the
// plugin plus the definition node into a concrete T. Go generics stand in
// here for the original's `new<T, C>`; every Create* method on
// plugin.Plugin is a distinct signature, so create is supplied by each
// Configure* wrapper below rather than dispatched on T itself.
func configure[T any](c *Ctx, a addr.Addr, component node.Component, kind string, def *node.Node, create func(plugin.Plugin, context.Context, addr.Addr, *node.Node) (T, error)) (T, error) {
	var zero T
	p, _, err := c.Plugins.Find(component, kind)
	if err != nil {
		return zero, err
	}
	v, err := create(p, context.Background(), a, def)
	if err != nil {
		return zero, fmt.Errorf("ctx: configuring %s %s at %s: %w", component, kind, a, err)
	}
	return v, nil
}

// ConfigureStorage, ConfigureFarm, ConfigureSource, ConfigureTransform and
// ConfigureVendor are the five concrete instantiations of configure, one
// per component kind a project definition can declare.

func ConfigureStorage(c *Ctx, a addr.Addr, kind string, def *node.Node) (storage.Backend, error) {
	return configure(c, a, node.ComponentStorageBackend, kind, def, plugin.Plugin.CreateStorage)
}

func ConfigureFarm(c *Ctx, a addr.Addr, kind string, def *node.Node) (environment.Farm, error) {
	return configure(c, a, node.ComponentEnvironment, kind, def, plugin.Plugin.CreateFarm)
}

func ConfigureSource(c *Ctx, a addr.Addr, kind string, def *node.Node) (source.Source, error) {
	return configure(c, a, node.ComponentSource, kind, def, plugin.Plugin.CreateSource)
}

func ConfigureTransform(c *Ctx, a addr.Addr, kind string, def *node.Node) (transform.Transform, error) {
	return configure(c, a, node.ComponentTransform, kind, def, plugin.Plugin.CreateTransform)
}

func ConfigureVendor(c *Ctx, a addr.Addr, kind string, def *node.Node) (resolver.Vendor, error) {
	return configure(c, a, node.ComponentVendor, kind, def, plugin.Plugin.CreateVendor)
}
