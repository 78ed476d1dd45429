package coreplugin

import (
	"context"
	"fmt"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/node"
	"github.com/cuemby/edo/internal/transform"
	"github.com/rs/zerolog"
)

// ImportTransform is the simplest transform kind: it declares no build
// step at all, only a set of source addresses, restored from the original's
// std/transform/import.rs. Depends reports those addresses as its
// dependencies; Stage does nothing, and the artifact Transform returns is a
// manifest with no layers, so no source content is copied into it.
type ImportTransform struct {
	addr        addr.Addr
	environment addr.Addr
	sources     []addr.Addr
}

func NewImportTransform(a addr.Addr, def *node.Definition) (*ImportTransform, error) {
	envNode, ok := def.Table["environment"]
	if !ok {
		return nil, fmt.Errorf("coreplugin: import transform %s missing required %q field", a, "environment")
	}
	envStr, _ := envNode.AsString()

	t := &ImportTransform{addr: a, environment: addr.Parse(envStr)}
	if srcNode, ok := def.Table["sources"]; ok {
		if d := srcNode.Data(); d.Kind == node.KindList {
			for _, elem := range d.List {
				if s, ok := elem.AsString(); ok {
					t.sources = append(t.sources, addr.Parse(s))
				}
			}
		}
	}
	return t, nil
}

func (t *ImportTransform) Environment() addr.Addr { return t.environment }

func (t *ImportTransform) UniqueID(ctx context.Context) (node.Id, error) {
	return node.Id{Name: node.Name(t.addr.String())}, nil
}

func (t *ImportTransform) Depends() []addr.Addr { return t.sources }

func (t *ImportTransform) Prepare(ctx context.Context, log zerolog.Logger) error { return nil }

func (t *ImportTransform) Stage(ctx context.Context, log zerolog.Logger, env environment.Environment) error {
	return nil
}

func (t *ImportTransform) Transform(ctx context.Context, log zerolog.Logger, env environment.Environment) transform.Status {
	id, err := t.UniqueID(ctx)
	if err != nil {
		return transform.Failed("", err)
	}
	return transform.Succeeded(node.Artifact{
		MediaType: node.MediaType{Kind: node.KindManifest},
		Config:    node.Config{ID: id},
	})
}

func (t *ImportTransform) CanShell() bool { return false }

func (t *ImportTransform) Shell(env environment.Environment) error {
	return fmt.Errorf("coreplugin: import transform %s has no shell to drop into", t.addr)
}
