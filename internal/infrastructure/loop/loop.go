package loop

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Loop runs posted functions one at a time on a single goroutine. State that
// is only touched from posted functions needs no locking.
type Loop struct {
	queue    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

func New(size int) *Loop {
	if size <= 0 {
		size = 1024
	}

	return &Loop{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Run processes posted functions until ctx is cancelled. A panicking function
// is logged and the loop carries on.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "event loop stopped")
			return nil
		case f := <-l.queue:
			l.exec(ctx, f)
		}
	}
}

func (l *Loop) exec(ctx context.Context, f func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "recovered panic in event loop", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	f()
}

func (l *Loop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Post queues f for the loop. It blocks while the queue is full and drops f
// once the loop has stopped. It must not be called from the loop goroutine.
func (l *Loop) Post(f func()) {
	select {
	case l.queue <- f:
	case <-l.done:
	}
}

// Do posts f and waits for it to run. It reports false if the loop stopped
// first.
func (l *Loop) Do(ctx context.Context, f func()) bool {
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		f()
	})

	select {
	case <-ran:
		return true
	case <-l.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (l *Loop) Go(f func()) {
	go f()
}

func (l *Loop) AfterFunc(d time.Duration, f func()) func() bool {
	t := time.AfterFunc(d, func() { l.Post(f) })
	return t.Stop
}

// Every posts f to the loop on each tick until ctx is cancelled.
func (l *Loop) Every(ctx context.Context, d time.Duration, f func()) error {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.done:
			return nil
		case <-ticker.C:
			l.Post(f)
		}
	}
}
