package runner

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Runner runs the long-lived parts of the process. The first one to fail
// cancels Context for the others.
type Runner struct {
	g   *errgroup.Group
	ctx context.Context
}

func New(ctx context.Context) *Runner {
	g, gctx := errgroup.WithContext(ctx)

	return &Runner{
		g:   g,
		ctx: gctx,
	}
}

func (r *Runner) Context() context.Context {
	return r.ctx
}

// Go starts f under name. f must return once Context is done.
func (r *Runner) Go(name string, f func(ctx context.Context) error) {
	r.g.Go(func() error {
		slog.DebugContext(r.ctx, "starting component", "component", name)
		err := f(r.ctx)
		slog.DebugContext(r.ctx, "component stopped", "component", name, "error", err)

		return err
	})
}

func (r *Runner) Wait() error {
	return r.g.Wait()
}
