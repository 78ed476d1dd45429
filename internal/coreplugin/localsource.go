package coreplugin

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/node"
	"github.com/cuemby/edo/internal/source"
	"github.com/rs/zerolog"
)

// LocalSource reads a path directly off the host disk and caches it as a
// tar layer, restored from the original's source/local.rs.
type LocalSource struct {
	addr addr.Addr
	path string
}

func NewLocalSource(a addr.Addr, path string) *LocalSource {
	return &LocalSource{addr: a, path: path}
}

func (s *LocalSource) UniqueID(ctx context.Context) (node.Id, error) {
	return node.Id{Name: node.Name(s.addr.String())}, nil
}

func (s *LocalSource) Fetch(ctx context.Context, log zerolog.Logger, st source.Storage) (node.Artifact, error) {
	id, err := s.UniqueID(ctx)
	if err != nil {
		return node.Artifact{}, err
	}
	return source.Cache(ctx, st, id, func(ctx context.Context) (node.Artifact, error) {
		return s.tarUp(ctx, st, id)
	})
}

func (s *LocalSource) tarUp(ctx context.Context, st source.Storage, id node.Id) (node.Artifact, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	err := filepath.WalkDir(s.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.path, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return node.Artifact{}, err
	}
	if err := tw.Close(); err != nil {
		return node.Artifact{}, err
	}

	w, err := st.SafeStartLayer(ctx)
	if err != nil {
		return node.Artifact{}, err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		w.Close()
		return node.Artifact{}, err
	}
	mt := node.MediaType{Kind: node.KindTar}
	layer, err := st.SafeFinishLayer(ctx, mt, "", w)
	if err != nil {
		return node.Artifact{}, err
	}
	artifact := node.Artifact{
		MediaType: mt,
		Config:    node.Config{ID: id},
		Layers:    []node.Layer{layer},
	}
	if err := st.SafeSave(ctx, artifact); err != nil {
		return node.Artifact{}, err
	}
	return artifact, nil
}

func (s *LocalSource) Stage(ctx context.Context, log zerolog.Logger, st source.Storage, env environment.Environment, path string) error {
	id, err := s.UniqueID(ctx)
	if err != nil {
		return err
	}
	a, err := s.Fetch(ctx, log, st)
	if err != nil {
		return err
	}
	for _, l := range a.Layers {
		r, err := st.SafeRead(ctx, l)
		if err != nil {
			return err
		}
		err = env.Unpack(ctx, path, r)
		r.Close()
		if err != nil {
			return err
		}
	}
	_ = id
	return nil
}
