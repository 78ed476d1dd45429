// Package plugin defines the extension ABI: the Plugin interface every
// capability provider (built-in or sandboxed) implements, and the
// sandboxed gRPC adapter that dispatches to an out-of-process plugin
// binary. spec.md's reference design sandboxes plugins with a wasm
// component model; this implementation substitutes a separate OS process
// reached over gRPC on a Unix domain socket, one of the alternatives the
// specification explicitly sanctions, built on the same transport the
// teacher already uses for its own manager/worker boundary.
package plugin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/node"
	"github.com/cuemby/edo/internal/resolver"
	"github.com/cuemby/edo/internal/source"
	"github.com/cuemby/edo/internal/storage"
	"github.com/cuemby/edo/internal/transform"
)

// Plugin is the capability surface a provider registers against a project.
// A single plugin can supply any subset of these; Supports reports which
// node kinds it knows how to construct, so the host can route a
// "prefix:kind" definition to the right plugin without every plugin having
// to understand every other plugin's kinds.
type Plugin interface {
	// Fetch performs one-time plugin initialization (e.g. loading its
	// binary, or for a sandboxed plugin, spawning its process).
	Fetch(ctx context.Context) error
	// Setup is called once the plugin is loaded and before it is asked
	// to construct anything.
	Setup(ctx context.Context) error
	// Supports reports whether this plugin can construct the given
	// component kind (e.g. "container" for an environment component).
	Supports(component node.Component, kind string) bool

	CreateStorage(ctx context.Context, addr addr.Addr, def *node.Node) (storage.Backend, error)
	CreateFarm(ctx context.Context, addr addr.Addr, def *node.Node) (environment.Farm, error)
	CreateSource(ctx context.Context, addr addr.Addr, def *node.Node) (source.Source, error)
	CreateTransform(ctx context.Context, addr addr.Addr, def *node.Node) (transform.Transform, error)
	CreateVendor(ctx context.Context, addr addr.Addr, def *node.Node) (resolver.Vendor, error)
}

// GuestError is the error shape that round-trips across the plugin
// process boundary: a plugin name plus a message, so a failure inside a
// sandboxed plugin is distinguishable from a host-side error.
type GuestError struct {
	Plugin  string
	Message string
}

func (e *GuestError) Error() string {
	return fmt.Sprintf("plugin %s: %s", e.Plugin, e.Message)
}

// Registry holds every plugin registered against a project, keyed by the
// address its definition was declared at.
type Registry struct {
	mu      sync.RWMutex
	plugins map[addr.Addr]Plugin
	order   []addr.Addr
}

func NewRegistry() *Registry {
	return &Registry{plugins: map[addr.Addr]Plugin{}}
}

func (r *Registry) Add(a addr.Addr, p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[a]; !exists {
		r.order = append(r.order, a)
	}
	r.plugins[a] = p
}

func (r *Registry) Get(a addr.Addr) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[a]
	return p, ok
}

// Find resolves a node's plugin by its kind string. A kind of the form
// "prefix:suffix" names an explicit plugin address ("prefix") and the kind
// to ask it for ("suffix"); any other kind is resolved by asking every
// registered plugin, in registration order, whether it Supports the
// component/kind pair, returning the first match.
func (r *Registry) Find(component node.Component, kind string) (Plugin, string, error) {
	if prefix, suffix, ok := strings.Cut(kind, ":"); ok {
		p, found := r.Get(addr.Parse(prefix))
		if !found {
			return nil, "", fmt.Errorf("plugin: no plugin registered at %s", prefix)
		}
		if !p.Supports(component, suffix) {
			return nil, "", fmt.Errorf("plugin: %s does not support %s kind %q", prefix, component, suffix)
		}
		return p, suffix, nil
	}

	r.mu.RLock()
	order := append([]addr.Addr{}, r.order...)
	r.mu.RUnlock()
	for _, a := range order {
		p, _ := r.Get(a)
		if p.Supports(component, kind) {
			return p, kind, nil
		}
	}
	return nil, "", fmt.Errorf("plugin: no registered plugin supports %s kind %q", component, kind)
}
