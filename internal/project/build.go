package project

import (
	"context"
	"fmt"
	"os"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/ctx"
	"github.com/cuemby/edo/internal/node"
	"github.com/cuemby/edo/internal/plugin"
	"github.com/cuemby/edo/internal/resolver"
	"github.com/cuemby/edo/internal/transform"
)

var buildCacheAddr = addr.Parse("//edo-build-cache")
var outputCacheAddr = addr.Parse("//edo-output-cache")

// Build wires a loaded Project into c: plugins, storage backends, vendors,
// dependency resolution, environments, and the transform graph, in the
// same order as the original's Project::build — plugins and backends
// first (transforms may need them during construction), then vendor
// resolution, then environments and transforms last since they may
// reference resolved dependency fields.
//
// If a lockfile already matches the project's current dependency digest,
// resolution is skipped entirely and the lock's recorded values are
// replayed onto the pending "wants" fields. errorOnLock turns a digest
// mismatch into a hard failure instead of silently re-resolving, for CI
// runs that want to catch an un-committed lockfile update.
func (p *Project) Build(c *ctx.Ctx, errorOnLock bool) error {
	background := context.Background()

	digest, err := p.lockDigest()
	if err != nil {
		return fmt.Errorf("project: computing lock digest: %w", err)
	}

	lock, err := readLock(p.Dir)
	if err != nil {
		return fmt.Errorf("project: reading lockfile: %w", err)
	}

	if lock != nil && lock.Digest == digest {
		for _, w := range p.wants {
			wire, ok := lock.Content[w.addr.String()]
			if !ok {
				return fmt.Errorf("project: lockfile missing entry for %s", w.addr)
			}
			w.target.SetData(node.FromWire(wire).Data())
		}
		if err := p.registerPlugins(background, c); err != nil {
			return err
		}
		if err := p.registerBackends(background, c); err != nil {
			return err
		}
		return p.registerEnvironmentsAndTransforms(background, c)
	}
	if lock != nil && lock.Digest != digest && errorOnLock {
		return fmt.Errorf("project: dependency declarations changed but the lockfile was not updated")
	}

	if err := p.registerPlugins(background, c); err != nil {
		return err
	}
	if err := p.registerBackends(background, c); err != nil {
		return err
	}

	vendorsByName := map[string]resolver.Vendor{}
	for a, n := range p.Vendors {
		defn, ok := n.AsDefinition()
		if !ok {
			return fmt.Errorf("project: vendor %s is not a definition node", a)
		}
		v, err := ctx.ConfigureVendor(c, a, defn.Kind, n)
		if err != nil {
			return err
		}
		vendorsByName[v.Name()] = v
		c.Resolver.Register(v)
	}

	var wants []resolver.Want
	for _, w := range p.wants {
		req, err := resolver.ParseRequirement(w.want.Name, w.want.Requirement, w.want.Vendor)
		if err != nil {
			return fmt.Errorf("project: want at %s: %w", w.addr, err)
		}
		wants = append(wants, resolver.Want{Addr: w.addr, Req: req})
	}

	lockContent := map[string]node.Wire{}
	if len(wants) > 0 {
		resolution, err := c.Resolver.Resolve(background, wants)
		if err != nil {
			return fmt.Errorf("project: resolving dependencies: %w", err)
		}
		for _, w := range p.wants {
			candidate, ok := resolution.Roots[w.addr]
			if !ok {
				return fmt.Errorf("project: no resolution recorded for %s", w.addr)
			}
			vendor, ok := vendorsByName[candidate.Vendor]
			if !ok {
				return fmt.Errorf("project: resolved vendor %q not registered", candidate.Vendor)
			}
			resolved, err := vendor.Resolve(background, candidate.Name, candidate.Version)
			if err != nil {
				return fmt.Errorf("project: resolving %s via %s: %w", candidate.Name, candidate.Vendor, err)
			}
			w.target.SetData(resolved.Data())
			lockContent[w.addr.String()] = node.ToWire(resolved)
		}
	}

	if err := writeLock(p.Dir, &Lock{Digest: digest, Content: lockContent}); err != nil {
		return fmt.Errorf("project: writing lockfile: %w", err)
	}

	return p.registerEnvironmentsAndTransforms(background, c)
}

// Update discards any existing lockfile and re-resolves every dependency
// from scratch, the operation behind refreshing a project whose vendor
// declarations changed.
func (p *Project) Update(c *ctx.Ctx) error {
	if err := os.Remove(lockPath(p.Dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("project: removing lockfile: %w", err)
	}
	return p.Build(c, false)
}

func (p *Project) registerPlugins(ctxBg context.Context, c *ctx.Ctx) error {
	for a, n := range p.Plugins {
		defn, ok := n.AsDefinition()
		if !ok {
			return fmt.Errorf("project: plugin %s is not a definition node", a)
		}
		table, _ := n.AsTable()
		socketNode, ok := table["socket"]
		if !ok {
			return fmt.Errorf("project: sandboxed plugin %s missing required %q field", a, "socket")
		}
		socket, _ := socketNode.AsString()
		sp, err := plugin.DialSandboxed(ctxBg, defn.Name, socket)
		if err != nil {
			return fmt.Errorf("project: dialing plugin %s: %w", a, err)
		}
		c.Plugins.Add(a, sp)
	}
	return nil
}

func (p *Project) registerBackends(ctxBg context.Context, c *ctx.Ctx) error {
	for a, n := range p.Backends {
		defn, ok := n.AsDefinition()
		if !ok {
			return fmt.Errorf("project: storage backend %s is not a definition node", a)
		}
		backend, err := ctx.ConfigureStorage(c, a, defn.Kind, n)
		if err != nil {
			return err
		}
		switch a {
		case buildCacheAddr:
			c.Storage.SetBuildCache(backend)
		case outputCacheAddr:
			c.Storage.SetOutputCache(backend)
		default:
			c.Storage.AddSourceCache(a.String(), backend)
		}
	}
	return nil
}

func (p *Project) registerEnvironmentsAndTransforms(ctxBg context.Context, c *ctx.Ctx) error {
	for a, n := range p.Environments {
		defn, ok := n.AsDefinition()
		if !ok {
			return fmt.Errorf("project: environment %s is not a definition node", a)
		}
		farm, err := ctx.ConfigureFarm(c, a, defn.Kind, n)
		if err != nil {
			return err
		}
		c.RegisterFarm(a, farm)
	}

	built := map[addr.Addr]transform.Transform{}
	for a, n := range p.Transforms {
		defn, ok := n.AsDefinition()
		if !ok {
			return fmt.Errorf("project: transform %s is not a definition node", a)
		}
		t, err := ctx.ConfigureTransform(c, a, defn.Kind, n)
		if err != nil {
			return err
		}
		built[a] = t
		c.RegisterTransform(a, t)
	}

	resolve := func(a addr.Addr) (transform.Transform, error) {
		if t, ok := built[a]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("project: transform dependency %s is not defined in this project", a)
	}
	for a, t := range built {
		if err := c.Graph.Add(a, t, resolve); err != nil {
			return err
		}
	}
	return nil
}
