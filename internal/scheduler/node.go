package scheduler

import (
	"sync/atomic"

	"github.com/cuemby/edo/internal/addr"
)

// Status is a graph node's lifecycle state. The only legal transitions are
// Pending->Queued->Running->{Success,Failed}; nothing ever moves
// backwards.
type Status int32

const (
	StatusPending Status = iota
	StatusQueued
	StatusRunning
	StatusFailed
	StatusSuccess
)

// gnode is one vertex of the build graph: the address it represents plus
// its atomic lifecycle state. Status is read from many goroutines (the
// controller, the dispatcher, and children checking whether their parents
// are done) so it is a plain atomic int rather than mutex-guarded.
type gnode struct {
	addr   addr.Addr
	status atomic.Int32
}

func newGNode(a addr.Addr) *gnode {
	return &gnode{addr: a}
}

func (n *gnode) Status() Status   { return Status(n.status.Load()) }
func (n *gnode) setQueued()       { n.status.Store(int32(StatusQueued)) }
func (n *gnode) setRunning()      { n.status.Store(int32(StatusRunning)) }
func (n *gnode) setFailed()       { n.status.Store(int32(StatusFailed)) }
func (n *gnode) setSuccess()      { n.status.Store(int32(StatusSuccess)) }
func (n *gnode) isPending() bool  { return n.Status() == StatusPending }
func (n *gnode) isQueued() bool   { return n.Status() == StatusQueued }
func (n *gnode) isFailed() bool   { return n.Status() == StatusFailed }
func (n *gnode) isDone() bool     { s := n.Status(); return s == StatusSuccess || s == StatusFailed }
func (n *gnode) isSuccess() bool  { return n.Status() == StatusSuccess }
