package ctx

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cuemby/edo/internal/node"
	"github.com/cuemby/edo/internal/resolver"
	"github.com/cuemby/edo/internal/scheduler"
)

// Run executes the build graph for the project already wired into c (every
// transform registered via RegisterTransform and added to c.Graph),
// respecting c.Config's batch size and interactive setting.
func (c *Ctx) Run(ctx context.Context) error {
	return c.Graph.Run(ctx, c.Storage, c, c.Log, scheduler.RunOptions{
		WorkDir:     c.Config.WorkDir,
		Interactive: c.Config.Interactive,
	})
}

// Checkout unpacks id's artifact from the local cache onto the host
// filesystem at dest, the operation a user runs to pull a built or fetched
// artifact out of the hermetic store and into their working tree.
func (c *Ctx) Checkout(ctx context.Context, id node.Id, dest string) error {
	artifact, err := c.Storage.SafeOpen(ctx, id)
	if err != nil {
		return fmt.Errorf("ctx: checkout %s: %w", id, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("ctx: checkout %s: %w", id, err)
	}
	for _, l := range artifact.Layers {
		if err := c.unpackLayer(ctx, l, dest); err != nil {
			return fmt.Errorf("ctx: checkout %s: %w", id, err)
		}
	}
	return nil
}

func (c *Ctx) unpackLayer(ctx context.Context, l node.Layer, dest string) error {
	r, err := c.Storage.SafeRead(ctx, l)
	if err != nil {
		return err
	}
	defer r.Close()

	var src io.Reader = r
	if gz, err := gzip.NewReader(r); err == nil {
		defer gz.Close()
		src = gz
	}
	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(dest, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}
}

// Prune removes every other version of id from the local cache, or the
// entire local cache when id is the zero value.
func (c *Ctx) Prune(ctx context.Context, id node.Id) error {
	if id == (node.Id{}) {
		return c.Storage.PruneLocalAll(ctx)
	}
	return c.Storage.PruneLocal(ctx, id)
}

// Update re-runs dependency resolution for wants against every registered
// vendor, the operation behind refreshing a project's lockfile.
func (c *Ctx) Update(ctx context.Context, wants []resolver.Want) (*resolver.Resolution, error) {
	return c.Resolver.Resolve(ctx, wants)
}

// List returns every Id currently in the local cache.
func (c *Ctx) List(ctx context.Context) ([]node.Id, error) {
	return c.Storage.LocalList(ctx)
}
