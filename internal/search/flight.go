package search

import (
	"context"
	"sync"
)

// flight is the context of one shared upstream fetch. It is cancelled when the last caller
// waiting on it leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type flights struct {
	mu sync.Mutex
	m  map[string]*flight
}

// join registers a waiter on the fetch for key, creating its context with newCtx when no fetch
// is tracked yet.
func (f *flights) join(key string, newCtx func() (context.Context, context.CancelFunc)) *flight {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.m == nil {
		f.m = make(map[string]*flight)
	}
	fl, ok := f.m[key]
	if !ok {
		ctx, cancel := newCtx()
		fl = &flight{ctx: ctx, cancel: cancel}
		f.m[key] = fl
	}
	fl.waiters++
	return fl
}

func (f *flights) leave(key string, fl *flight) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	fl.cancel()
	if f.m[key] == fl {
		delete(f.m, key)
	}
}
