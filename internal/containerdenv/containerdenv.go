// Package containerdenv implements environment.Farm and environment.
// Environment on top of containerd: each transform run gets its own task
// created from a pinned image snapshot, with writes, unpacks and reads
// streamed into the task's rootfs and commands executed via containerd's
// exec API. This is the "container" farm kind, the richer alternative to
// coreplugin's host-local farm.
package containerdenv

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/cuemby/edo/internal/environment"
)

const defaultNamespace = "edo"

// Farm connects to a containerd socket and pulls a single base image once,
// sharing it across every Environment it creates.
type Farm struct {
	socketPath string
	image      string
	namespace  string
	mounts     []specs.Mount

	mu     sync.Mutex
	client *containerd.Client
	img    containerd.Image
}

// NewFarm returns a Farm that will dial socketPath and base every
// environment on image (e.g. "docker.io/library/alpine:latest").
func NewFarm(socketPath, image string) *Farm {
	if socketPath == "" {
		socketPath = "/run/containerd/containerd.sock"
	}
	return &Farm{socketPath: socketPath, image: image, namespace: defaultNamespace}
}

// WithMount adds a bind mount applied to every environment this farm
// creates, the same shape as the teacher's CreateContainerWithMounts
// secret/volume/resolv.conf mounts.
func (f *Farm) WithMount(source, destination string, readOnly bool) *Farm {
	opts := []string{"bind"}
	if readOnly {
		opts = append(opts, "ro")
	}
	f.mounts = append(f.mounts, specs.Mount{
		Source:      source,
		Destination: destination,
		Type:        "bind",
		Options:     opts,
	})
	return f
}

// Setup dials containerd and pulls the base image, once per Farm.
func (f *Farm) Setup(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		return nil
	}
	client, err := containerd.New(f.socketPath)
	if err != nil {
		return fmt.Errorf("containerdenv: connecting to %s: %w", f.socketPath, err)
	}
	nctx := namespaces.WithNamespace(ctx, f.namespace)
	img, err := client.Pull(nctx, f.image, containerd.WithPullUnpack)
	if err != nil {
		client.Close()
		return fmt.Errorf("containerdenv: pulling %s: %w", f.image, err)
	}
	f.client = client
	f.img = img
	return nil
}

// Create spins up a fresh container and task from the farm's pinned image,
// with a container id of "edo-" plus a random UUID so repeated runs against
// the same dir never collide on container IDs.
func (f *Farm) Create(ctx context.Context, dir string) (environment.Environment, error) {
	f.mu.Lock()
	client, img := f.client, f.img
	f.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("containerdenv: farm not set up")
	}

	id := "edo-" + uuid.NewString()
	return &Env{
		client:    client,
		namespace: f.namespace,
		id:        id,
		image:     img,
		mounts:    f.mounts,
		root:      dir,
		env:       map[string]string{},
	}, nil
}

// Env is one transform's containerd-backed sandbox: a container plus,
// once Up has run, a live task. Write/Unpack/Read address paths inside
// the task's rootfs bundle via an exec'd cat/tar, since containerd does
// not expose a host-side bundle filesystem directly once a task is
// running under most snapshotters.
type Env struct {
	client    *containerd.Client
	namespace string
	id        string
	image     containerd.Image
	mounts    []specs.Mount
	root      string

	mu   sync.RWMutex
	env  map[string]string
	task containerd.Task
	ctr  containerd.Container
}

func (e *Env) nsctx(ctx context.Context) context.Context {
	return namespaces.WithNamespace(ctx, e.namespace)
}

func (e *Env) Expand(path string) (string, error) { return path, nil }

func (e *Env) CreateDir(ctx context.Context, path string) error {
	_, err := e.Cmd(ctx, io.Discard, "/", "mkdir", "-p", path)
	return err
}

func (e *Env) SetEnv(key, value string) {
	e.mu.Lock()
	e.env[key] = value
	e.mu.Unlock()
}

func (e *Env) GetEnv(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.env[key]
	return v, ok
}

func (e *Env) Setup(ctx context.Context) error { return nil }

// Up creates the container and starts its task, the per-run resources
// Down and Clean tear back down.
func (e *Env) Up(ctx context.Context) error {
	nctx := e.nsctx(ctx)

	e.mu.RLock()
	envPairs := make([]string, 0, len(e.env))
	for k, v := range e.env {
		envPairs = append(envPairs, k+"="+v)
	}
	e.mu.RUnlock()

	opts := []oci.SpecOpts{
		oci.WithImageConfig(e.image),
		oci.WithEnv(envPairs),
	}
	if len(e.mounts) > 0 {
		opts = append(opts, oci.WithMounts(e.mounts))
	}

	ctr, err := e.client.NewContainer(
		nctx,
		e.id,
		containerd.WithImage(e.image),
		containerd.WithNewSnapshot(e.id+"-snapshot", e.image),
		containerd.WithNewSpec(opts...),
	)
	if err != nil {
		return fmt.Errorf("containerdenv: creating container: %w", err)
	}

	task, err := ctr.NewTask(nctx, cio.NullIO)
	if err != nil {
		ctr.Delete(nctx, containerd.WithSnapshotCleanup)
		return fmt.Errorf("containerdenv: creating task: %w", err)
	}
	if err := task.Start(nctx); err != nil {
		task.Delete(nctx)
		ctr.Delete(nctx, containerd.WithSnapshotCleanup)
		return fmt.Errorf("containerdenv: starting task: %w", err)
	}

	e.mu.Lock()
	e.ctr, e.task = ctr, task
	e.mu.Unlock()
	return nil
}

// Down kills and deletes the task but keeps the container and its
// snapshot around for a possible retry; Clean removes those too.
func (e *Env) Down(ctx context.Context) error {
	nctx := e.nsctx(ctx)
	e.mu.Lock()
	task := e.task
	e.task = nil
	e.mu.Unlock()
	if task == nil {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(nctx, 10*time.Second)
	defer cancel()
	_ = task.Kill(stopCtx, 15)
	statusC, err := task.Wait(stopCtx)
	if err == nil {
		select {
		case <-statusC:
		case <-stopCtx.Done():
			_ = task.Kill(nctx, 9)
		}
	}
	_, err = task.Delete(nctx)
	return err
}

func (e *Env) Clean(ctx context.Context) error {
	nctx := e.nsctx(ctx)
	e.mu.Lock()
	ctr := e.ctr
	e.ctr = nil
	e.mu.Unlock()
	if ctr == nil {
		return nil
	}
	return ctr.Delete(nctx, containerd.WithSnapshotCleanup)
}

// Write pipes src into path via a `cat > path` exec, since there is no
// direct bundle-filesystem handle once the task is running.
func (e *Env) Write(ctx context.Context, path string, src io.Reader) error {
	_, err := e.execStdin(ctx, src, io.Discard, "/", "sh", "-c", "cat > "+path)
	return err
}

// Unpack pipes src through `tar xzf -` at path, so src must be a
// gzip-compressed tar stream.
func (e *Env) Unpack(ctx context.Context, path string, src io.Reader) error {
	if _, err := e.Cmd(ctx, io.Discard, "/", "mkdir", "-p", path); err != nil {
		return err
	}
	_, err := e.execStdin(ctx, src, io.Discard, path, "tar", "xzf", "-")
	return err
}

// Read execs `cat path` and returns its stdout as a ReadCloser.
func (e *Env) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		_, err := e.execStdin(ctx, nil, pw, "/", "cat", path)
		pw.CloseWithError(err)
	}()
	return pr, nil
}

// Cmd runs name synchronously, returning false (no error) on a clean
// non-zero exit and an error only when the exec itself could not be
// started or waited on.
func (e *Env) Cmd(ctx context.Context, log io.Writer, dir string, name string, args ...string) (bool, error) {
	return e.execStdin(ctx, nil, log, dir, name, args...)
}

// execStdin execs name inside the task's running process namespace,
// cloning its process spec so the sandbox's image config and mounts
// apply to every exec. It reports (true, nil) on exit 0, (false, nil) on
// a clean non-zero exit, and a non-nil error only when the exec itself
// could not be created, started or waited on.
func (e *Env) execStdin(ctx context.Context, stdin io.Reader, log io.Writer, dir, name string, args ...string) (bool, error) {
	e.mu.RLock()
	task := e.task
	e.mu.RUnlock()
	if task == nil {
		return false, fmt.Errorf("containerdenv: environment not up")
	}
	nctx := e.nsctx(ctx)

	spec, err := task.Spec(nctx)
	if err != nil {
		return false, fmt.Errorf("containerdenv: reading task spec: %w", err)
	}
	procSpec := *spec.Process
	procSpec.Args = append([]string{name}, args...)
	procSpec.Cwd = dir

	execID := "exec-" + uuid.NewString()
	process, err := task.Exec(nctx, execID, &procSpec, cio.NewCreator(cio.WithStreams(stdin, log, log)))
	if err != nil {
		return false, fmt.Errorf("containerdenv: exec %s: %w", name, err)
	}
	statusC, err := process.Wait(nctx)
	if err != nil {
		return false, fmt.Errorf("containerdenv: waiting on %s: %w", name, err)
	}
	if err := process.Start(nctx); err != nil {
		return false, fmt.Errorf("containerdenv: starting %s: %w", name, err)
	}
	status := <-statusC
	if _, err := process.Delete(nctx); err != nil {
		return false, fmt.Errorf("containerdenv: deleting exec %s: %w", name, err)
	}
	return status.ExitCode() == 0, nil
}

func (e *Env) Run(ctx context.Context, log io.Writer, id, dir string, cmd *environment.Command) (bool, error) {
	return e.execStdin(ctx, nil, log, dir, cmd.Interpreter, "-c", cmd.Script())
}

func (e *Env) Shell(path string) error {
	return fmt.Errorf("containerdenv: interactive shell is not supported; use `ctr -n %s task exec -t --exec-id shell %s sh`", e.namespace, e.id)
}
