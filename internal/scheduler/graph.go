// Package scheduler implements the parallel transform build graph: a DAG
// of transform addresses, a bounded worker pool that executes leaves
// first and fans out as parents complete, and an interactive retry loop
// for failed transforms.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/node"
	"github.com/cuemby/edo/internal/transform"
	"github.com/rs/zerolog"
)

// BuildCache is the slice of storage.Storage the scheduler needs: a
// build-result short-circuit check and a place to upload a freshly built
// artifact. Defined as an interface here (rather than importing
// internal/storage directly) to keep the scheduler package's dependency
// surface to exactly what it uses.
type BuildCache interface {
	FindBuild(ctx context.Context, id node.Id, sync bool) (node.Artifact, bool, error)
	UploadBuild(ctx context.Context, id node.Id) error
}

// EnvironmentFactory resolves a transform's declared environment address
// into a live Farm, a responsibility that belongs to the Context (which
// knows every registered farm) rather than the scheduler.
type EnvironmentFactory interface {
	Farm(ctx context.Context, a addr.Addr) (environment.Farm, error)
}

// Graph is the build DAG: one node per transform address, edges from a
// transform to every address it Depends() on.
type Graph struct {
	mu        sync.Mutex
	nodes     []*gnode
	index     map[addr.Addr]int
	transform map[addr.Addr]transform.Transform
	children  map[int][]int
	parents   map[int][]int

	batchSize int
}

// NewGraph returns an empty Graph with the given worker pool size (the
// maximum number of transforms executing concurrently).
func NewGraph(batchSize int) *Graph {
	if batchSize <= 0 {
		batchSize = 8
	}
	return &Graph{
		index:     map[addr.Addr]int{},
		transform: map[addr.Addr]transform.Transform{},
		children:  map[int][]int{},
		parents:   map[int][]int{},
		batchSize: batchSize,
	}
}

// Add registers a transform's node and recursively adds every node it
// depends on, wiring parent/child edges. Adding the same address twice is
// a no-op, matching the original's idempotent graph construction.
func (g *Graph) Add(a addr.Addr, t transform.Transform, resolve func(addr.Addr) (transform.Transform, error)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.add(a, t, resolve)
}

func (g *Graph) add(a addr.Addr, t transform.Transform, resolve func(addr.Addr) (transform.Transform, error)) error {
	if _, ok := g.index[a]; ok {
		return nil
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, newGNode(a))
	g.index[a] = idx
	g.transform[a] = t

	for _, dep := range t.Depends() {
		depT, ok := g.transform[dep]
		if !ok {
			resolved, err := resolve(dep)
			if err != nil {
				return fmt.Errorf("scheduler: resolving dependency %s of %s: %w", dep, a, err)
			}
			depT = resolved
			if err := g.add(dep, depT, resolve); err != nil {
				return err
			}
		}
		depIdx := g.index[dep]
		g.children[depIdx] = append(g.children[depIdx], idx)
		g.parents[idx] = append(g.parents[idx], depIdx)
	}
	return nil
}

// findLeafs returns every node index with no parents, the initial
// dispatch set.
func (g *Graph) findLeafs() []int {
	var leafs []int
	for i := range g.nodes {
		if len(g.parents[i]) == 0 {
			leafs = append(leafs, i)
		}
	}
	return leafs
}

// parentsDone reports whether every parent of idx has succeeded.
func (g *Graph) parentsDone(idx int) bool {
	for _, p := range g.parents[idx] {
		if !g.nodes[p].isSuccess() {
			return false
		}
	}
	return true
}
