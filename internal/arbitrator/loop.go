package arbitrator

import (
	"context"
	"sync"
)

// Loop runs posted functions one at a time on the goroutine that calls Run.
// Post never blocks, so backends may post from any goroutine, including
// from a function already running on the loop.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop returns an idle loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn to run on the loop.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted functions until ctx is done. Functions still queued
// when ctx ends are dropped.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
		for {
			fn := l.next()
			if fn == nil {
				break
			}
			fn()
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// Drain runs queued functions on the calling goroutine until the queue is
// empty. It is meant for tests that drive the loop by hand.
func (l *Loop) Drain() int {
	n := 0
	for fn := l.next(); fn != nil; fn = l.next() {
		fn()
		n++
	}
	return n
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}
