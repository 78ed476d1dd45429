// Package environment defines the sandbox a transform runs inside (a
// directory tree plus a way to execute commands in it) and the Farm that
// creates fresh environments on demand, together with the deferred Command
// script builder transforms use to describe work without running it
// immediately.
package environment

import (
	"context"
	"io"
)

// Environment is one isolated workspace a transform stages files into and
// runs commands inside. A concrete implementation might be a plain host
// temp directory (the "local" environment) or a containerd task bound to a
// rootfs snapshot (the "container" environment).
type Environment interface {
	// Expand resolves a path relative to the environment's root.
	Expand(path string) (string, error)
	// CreateDir makes a directory (and parents) inside the environment.
	CreateDir(ctx context.Context, path string) error
	// SetEnv/GetEnv manage environment variables visible to commands run
	// inside this environment.
	SetEnv(key, value string)
	GetEnv(key string) (string, bool)
	// Setup performs one-time preparation shared by every transform that
	// will use this environment (e.g. pulling a base rootfs).
	Setup(ctx context.Context) error
	// Up brings the environment online for one transform run.
	Up(ctx context.Context) error
	// Down tears down the per-run resources Up created.
	Down(ctx context.Context) error
	// Clean releases anything Setup allocated. Always called, even on
	// transform failure.
	Clean(ctx context.Context) error
	// Write streams src into path inside the environment.
	Write(ctx context.Context, path string, src io.Reader) error
	// Unpack extracts an archive reader into path inside the environment.
	Unpack(ctx context.Context, path string, src io.Reader) error
	// Read opens a reader over path inside the environment.
	Read(ctx context.Context, path string) (io.ReadCloser, error)
	// Cmd runs a single command synchronously, streaming its output to
	// log, and returns whether it exited zero.
	Cmd(ctx context.Context, log io.Writer, dir string, name string, args ...string) (bool, error)
	// Run executes a deferred Command script, streaming output to log.
	Run(ctx context.Context, log io.Writer, id string, dir string, cmd *Command) (bool, error)
	// Shell drops an interactive shell rooted at path, for the "shell"
	// option of the scheduler's interactive retry prompt. Intentionally
	// synchronous: it blocks until the user exits the shell.
	Shell(path string) error
}

// Farm creates fresh Environment instances on demand, matching one
// "environment" definition in a project.
type Farm interface {
	// Setup performs farm-wide one-time preparation (called once per run,
	// before any transform uses the farm).
	Setup(ctx context.Context) error
	// Create returns a new Environment rooted at dir.
	Create(ctx context.Context, dir string) (Environment, error)
}
