package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// writer coalesces cache mutations into at most one store write per delay window.
// A write already scheduled is never duplicated.
type writer struct {
	delay time.Duration
	save  func(ctx context.Context) error
	log   logrus.FieldLogger

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	dirty  bool
	closed bool

	saveMu sync.Mutex
}

func newWriter(delay time.Duration, save func(ctx context.Context) error, log logrus.FieldLogger) *writer {
	return &writer{delay: delay, save: save, log: log}
}

func (w *writer) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.dirty = true
	if w.timer != nil {
		return
	}
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(w.delay, func() { w.fire(gen) })
}

func (w *writer) fire(gen uint64) {
	w.mu.Lock()
	if w.gen == gen {
		w.timer = nil
	}
	w.mu.Unlock()

	if err := w.write(context.Background()); err != nil {
		w.log.WithError(err).Warn("Failed to persist search cache")
	}
}

func (w *writer) write(ctx context.Context) error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	if !w.dirty {
		w.mu.Unlock()
		return nil
	}
	w.dirty = false
	w.mu.Unlock()

	if err := w.save(ctx); err != nil {
		w.mu.Lock()
		w.dirty = true
		w.mu.Unlock()
		return err
	}
	return nil
}

func (w *writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
		w.gen++
	}
	w.mu.Unlock()

	return w.write(ctx)
}

func (w *writer) Close(ctx context.Context) error {
	err := w.Flush(ctx)

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return err
}
