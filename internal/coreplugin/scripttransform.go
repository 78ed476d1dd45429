package coreplugin

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/node"
	"github.com/cuemby/edo/internal/transform"
	"github.com/rs/zerolog"
)

// ScriptTransform runs a shell script inside its environment, restored from
// the original's edo-core-plugin/src/transform/script.rs — the transform
// kind that actually exercises environment.Command end to end. Stage
// creates the declared output directory; the artifact Transform returns
// carries no layers, so nothing the script writes there is captured.
type ScriptTransform struct {
	addr        addr.Addr
	environment addr.Addr
	depends     []addr.Addr
	script      string
	outputDir   string
}

func NewScriptTransform(a addr.Addr, def *node.Definition) (*ScriptTransform, error) {
	envNode, ok := def.Table["environment"]
	if !ok {
		return nil, fmt.Errorf("coreplugin: script transform %s missing required %q field", a, "environment")
	}
	scriptNode, ok := def.Table["script"]
	if !ok {
		return nil, fmt.Errorf("coreplugin: script transform %s missing required %q field", a, "script")
	}
	envStr, _ := envNode.AsString()
	script, _ := scriptNode.AsString()

	t := &ScriptTransform{addr: a, environment: addr.Parse(envStr), script: script, outputDir: "out"}
	if outNode, ok := def.Table["output"]; ok {
		if s, ok := outNode.AsString(); ok {
			t.outputDir = s
		}
	}
	if depNode, ok := def.Table["depends"]; ok {
		if d := depNode.Data(); d.Kind == node.KindList {
			for _, elem := range d.List {
				if s, ok := elem.AsString(); ok {
					t.depends = append(t.depends, addr.Parse(s))
				}
			}
		}
	}
	return t, nil
}

func (t *ScriptTransform) Environment() addr.Addr { return t.environment }

func (t *ScriptTransform) UniqueID(ctx context.Context) (node.Id, error) {
	return node.Id{Name: node.Name(t.addr.String())}, nil
}

func (t *ScriptTransform) Depends() []addr.Addr { return t.depends }

func (t *ScriptTransform) Prepare(ctx context.Context, log zerolog.Logger) error { return nil }

func (t *ScriptTransform) Stage(ctx context.Context, log zerolog.Logger, env environment.Environment) error {
	return env.CreateDir(ctx, t.outputDir)
}

func (t *ScriptTransform) Transform(ctx context.Context, log zerolog.Logger, env environment.Environment) transform.Status {
	cmd := environment.NewCommand(t.addr.Leaf())
	cmd.Run(t.script)

	var out bytes.Buffer
	if err := cmd.Send(ctx, env, &out, "."); err != nil {
		return transform.Retryable("", fmt.Errorf("coreplugin: script transform %s: %w", t.addr, err))
	}

	id, err := t.UniqueID(ctx)
	if err != nil {
		return transform.Failed("", err)
	}
	return transform.Succeeded(node.Artifact{
		MediaType: node.MediaType{Kind: node.KindTar},
		Config:    node.Config{ID: id},
	})
}

func (t *ScriptTransform) CanShell() bool { return true }

func (t *ScriptTransform) Shell(env environment.Environment) error {
	return env.Shell(".")
}
