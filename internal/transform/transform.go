// Package transform defines the Transform interface the scheduler drives
// and its terminal Status type. The two built-in transform kinds (import,
// script) live in internal/coreplugin.
package transform

import (
	"context"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/node"
	"github.com/rs/zerolog"
)

// Status is the terminal result of one Transform() attempt.
type Status struct {
	Kind     StatusKind
	Artifact node.Artifact // valid when Kind == StatusSuccess
	LogFile  string        // optional, surfaced to the interactive retry prompt's "view log" option
	Err      error         // valid when Kind != StatusSuccess
}

type StatusKind int

const (
	StatusSuccess StatusKind = iota
	StatusRetryable
	StatusFailed
)

func Succeeded(a node.Artifact) Status { return Status{Kind: StatusSuccess, Artifact: a} }

func Retryable(logFile string, err error) Status {
	return Status{Kind: StatusRetryable, LogFile: logFile, Err: err}
}

func Failed(logFile string, err error) Status {
	return Status{Kind: StatusFailed, LogFile: logFile, Err: err}
}

// Transform is one node in the build graph: it knows which environment it
// needs, which other nodes it depends on, and how to produce an artifact
// once staged into a running environment.
type Transform interface {
	// Environment returns the address of the Farm this transform must
	// run inside.
	Environment() addr.Addr
	// UniqueID derives this transform's content-addressed Id, used to
	// look the result up in (and save it to) the build cache.
	UniqueID(ctx context.Context) (node.Id, error)
	// Depends returns the addresses of every node this transform
	// requires to have already succeeded.
	Depends() []addr.Addr
	// Prepare does any fetching/caching work that can happen before an
	// environment exists (e.g. a Source's Fetch).
	Prepare(ctx context.Context, log zerolog.Logger) error
	// Stage copies whatever Prepare fetched into env.
	Stage(ctx context.Context, log zerolog.Logger, env environment.Environment) error
	// Transform runs the actual build step inside env and returns its
	// terminal status. Unlike most of this interface, Transform does
	// not return a Go error for ordinary build failure — Status itself
	// distinguishes success from a retryable or fatal failure, matching
	// the scheduler's interactive retry loop.
	Transform(ctx context.Context, log zerolog.Logger, env environment.Environment) Status
	// CanShell reports whether the interactive retry prompt should
	// offer a "drop to shell" option for this transform.
	CanShell() bool
	// Shell drops an interactive shell into env, for the retry prompt's
	// "shell" option.
	Shell(env environment.Environment) error
}
