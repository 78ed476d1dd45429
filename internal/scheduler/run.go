package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/metrics"
	"github.com/cuemby/edo/internal/transform"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RunOptions configures one Graph.Run invocation.
type RunOptions struct {
	WorkDir     string // root directory under which each transform gets its own environment root
	Interactive bool   // offer the view-log/shell/retry/quit prompt on a retryable failure
}

// Run executes every node of the graph, starting from its leaves and
// fanning out as parents complete, bounded to g.batchSize concurrent
// transforms. A node whose build-cache lookup already hits is never
// executed — it is marked successful immediately, matching the
// short-circuit the storage layer's FindBuild(..., sync=false) check
// exists for. Once a node fails no further nodes are queued: the run waits
// for the transforms already in flight and returns an error naming the
// first failed transform.
func (g *Graph) Run(ctx context.Context, cache BuildCache, envs EnvironmentFactory, log zerolog.Logger, opts RunOptions) error {
	g.mu.Lock()
	leafs := g.findLeafs()
	total := len(g.nodes)
	g.mu.Unlock()

	if total == 0 {
		return nil
	}

	if err := g.prefetch(ctx, cache, log); err != nil {
		return err
	}

	queue := make([]int, 0, len(leafs))
	var queueMu sync.Mutex
	for _, idx := range leafs {
		g.nodes[idx].setQueued()
		queue = append(queue, idx)
	}

	done := make(chan int, g.batchSize)
	var inflight sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex
	recordErr := func(err error) {
		if err == nil {
			return
		}
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	completedCount := 0
	inflightCount := 0

	dispatch := func() {
		queueMu.Lock()
		defer queueMu.Unlock()
		for inflightCount < g.batchSize && len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			inflightCount++
			inflight.Add(1)
			go g.runOne(ctx, idx, cache, envs, log, opts, done, &inflight)
		}
		metrics.SchedulerInflight.Set(float64(inflightCount))
		metrics.SchedulerQueueDepth.Set(float64(len(queue)))
	}

	dispatch()

	for completedCount < total {
		queueMu.Lock()
		idle := inflightCount == 0 && len(queue) == 0
		queueMu.Unlock()
		if idle {
			break
		}
		idx := <-done
		completedCount++
		queueMu.Lock()
		inflightCount--
		queueMu.Unlock()

		if g.nodes[idx].isFailed() {
			recordErr(fmt.Errorf("scheduler: transform %s failed", g.nodes[idx].addr))
		} else if firstErr == nil {
			for _, child := range g.children[idx] {
				if g.nodes[child].isPending() && g.parentsDone(child) {
					g.nodes[child].setQueued()
					queueMu.Lock()
					queue = append(queue, child)
					queueMu.Unlock()
				}
			}
		}
		dispatch()
	}
	inflight.Wait()
	if firstErr == nil && completedCount < total {
		return fmt.Errorf("scheduler: %d of %d transforms were never scheduled because their dependencies form a cycle", total-completedCount, total)
	}
	return firstErr
}

// prefetch runs the build-cache pre-fetch pass ahead of the execution
// loop: every node's unique id is looked up against the build cache with
// sync=true, pulling any artifact already built elsewhere into the local
// cache before dispatch decides what still needs running. A failure to
// compute a unique id or to reach the build cache is logged and skipped
// rather than failing the whole run — the execution loop re-derives the
// same id and falls through to running the transform normally.
func (g *Graph) prefetch(ctx context.Context, cache BuildCache, log zerolog.Logger) error {
	g.mu.Lock()
	nodes := append([]*gnode{}, g.nodes...)
	transforms := make(map[addr.Addr]transform.Transform, len(g.transform))
	for a, t := range g.transform {
		transforms[a] = t
	}
	g.mu.Unlock()

	grp, gctx := errgroup.WithContext(ctx)
	for _, n := range nodes {
		n := n
		t := transforms[n.addr]
		grp.Go(func() error {
			nodeLog := log.With().Str("addr", n.addr.String()).Logger()
			id, err := t.UniqueID(gctx)
			if err != nil {
				nodeLog.Warn().Err(err).Msg("computing transform unique id failed during prefetch")
				return nil
			}
			if _, _, err := cache.FindBuild(gctx, id, true); err != nil {
				nodeLog.Warn().Err(err).Msg("build cache prefetch failed")
			}
			return nil
		})
	}
	return grp.Wait()
}

// runOne drives a single node's transform through its full lifecycle —
// resolve id, check the build cache, stand up an environment, prepare and
// stage, run Transform (retrying through the interactive prompt when the
// result is retryable and opts.Interactive is set), upload the artifact on
// success, tear the environment down — and reports its index on done
// regardless of outcome so the controller loop always makes progress.
func (g *Graph) runOne(ctx context.Context, idx int, cache BuildCache, envs EnvironmentFactory, log zerolog.Logger, opts RunOptions, done chan<- int, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() { done <- idx }()

	n := g.nodes[idx]
	n.setRunning()
	t := g.transform[n.addr]
	nodeLog := log.With().Str("addr", n.addr.String()).Logger()

	id, err := t.UniqueID(ctx)
	if err != nil {
		nodeLog.Error().Err(err).Msg("computing transform unique id failed")
		n.setFailed()
		return
	}

	if _, hit, err := cache.FindBuild(ctx, id, false); err == nil && hit {
		metrics.CacheHits.WithLabelValues("hit").Inc()
		nodeLog.Debug().Msg("build cache hit, skipping transform")
		n.setSuccess()
		return
	}
	metrics.CacheHits.WithLabelValues("miss").Inc()

	farm, err := envs.Farm(ctx, t.Environment())
	if err != nil {
		nodeLog.Error().Err(err).Msg("resolving environment farm failed")
		n.setFailed()
		return
	}
	if err := farm.Setup(ctx); err != nil {
		nodeLog.Error().Err(err).Msg("farm setup failed")
		n.setFailed()
		return
	}

	workDir := filepath.Join(opts.WorkDir, id.Name)
	env, err := farm.Create(ctx, workDir)
	if err != nil {
		nodeLog.Error().Err(err).Msg("creating environment failed")
		n.setFailed()
		return
	}
	defer func() {
		if err := env.Clean(ctx); err != nil {
			nodeLog.Warn().Err(err).Msg("environment cleanup failed")
		}
	}()

	if err := env.Setup(ctx); err != nil {
		nodeLog.Error().Err(err).Msg("environment setup failed")
		n.setFailed()
		return
	}
	if err := env.Up(ctx); err != nil {
		nodeLog.Error().Err(err).Msg("bringing environment up failed")
		n.setFailed()
		return
	}
	defer func() {
		if err := env.Down(ctx); err != nil {
			nodeLog.Warn().Err(err).Msg("bringing environment down failed")
		}
	}()

	if err := t.Prepare(ctx, nodeLog); err != nil {
		nodeLog.Error().Err(err).Msg("prepare failed")
		n.setFailed()
		return
	}
	if err := t.Stage(ctx, nodeLog, env); err != nil {
		nodeLog.Error().Err(err).Msg("stage failed")
		n.setFailed()
		return
	}

	timer := metrics.NewTimer()
	status := attempt(ctx, t, env, nodeLog, opts.Interactive)
	timer.ObserveDurationVec(metrics.TransformDuration, n.addr.String())

	switch status.Kind {
	case transform.StatusSuccess:
		metrics.TransformsRun.WithLabelValues("success").Inc()
		if err := cache.UploadBuild(ctx, id); err != nil {
			nodeLog.Warn().Err(err).Msg("uploading build result failed")
		}
		n.setSuccess()
	default:
		metrics.TransformsRun.WithLabelValues("failed").Inc()
		nodeLog.Error().Err(status.Err).Msg("transform did not succeed")
		n.setFailed()
	}
}
