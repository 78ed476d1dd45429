package ctx

import (
	"sync"

	"github.com/cuemby/edo/internal/addr"
)

// addrMap is a small generic mutex-guarded map keyed by addr.Addr, the
// Go shape of the teacher's plain mutex-guarded maps (pkg/manager keeps
// its worker/task tables the same way) generalized with a type parameter
// instead of being copy-pasted once per value type.
type addrMap[T any] struct {
	mu sync.RWMutex
	m  map[addr.Addr]T
}

func newAddrMap[T any]() *addrMap[T] {
	return &addrMap[T]{m: map[addr.Addr]T{}}
}

func (a *addrMap[T]) get(k addr.Addr) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.m[k]
	return v, ok
}

func (a *addrMap[T]) set(k addr.Addr, v T) {
	a.mu.Lock()
	a.m[k] = v
	a.mu.Unlock()
}

func (a *addrMap[T]) delete(k addr.Addr) {
	a.mu.Lock()
	delete(a.m, k)
	a.mu.Unlock()
}

func (a *addrMap[T]) keys() []addr.Addr {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]addr.Addr, 0, len(a.m))
	for k := range a.m {
		out = append(out, k)
	}
	return out
}
