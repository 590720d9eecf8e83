package intelligence

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultPerTaskTimeout = 5 * time.Second
	defaultGlobalDeadline = 8 * time.Second
)

// Tasks holds the four per-turn analysis functions the orchestrator fans
// out to. Each may be nil, in which case that slot of the Bundle stays
// empty. Concrete callers in internal/pipeline wire these to the external
// emotion client, local heuristics, L6, and L7+L8 respectively.
type Tasks struct {
	ExternalEmotion func(ctx context.Context) (*ExternalEmotion, error)
	IntrinsicEmotion func(ctx context.Context) (*IntrinsicEmotion, error)
	Personality      func(ctx context.Context) (*PersonalityAnalysis, error)
	HumanLike        func(ctx context.Context) (*HumanLikeIntelligence, error)
}

// Orchestrator runs Tasks concurrently with isolated per-task timeouts and
// a shared global deadline (spec.md §4.9).
type Orchestrator struct {
	perTaskTimeout time.Duration
	globalDeadline time.Duration
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{perTaskTimeout: defaultPerTaskTimeout, globalDeadline: defaultGlobalDeadline}
}

// Run fans out all four tasks and fans in whatever completed before the
// global deadline. A task that errors, panics, or times out contributes a
// nil field to the Bundle; it never fails the turn.
func (o *Orchestrator) Run(ctx context.Context, tasks Tasks) Bundle {
	ctx, cancel := context.WithTimeout(ctx, o.globalDeadline)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	bundle := Bundle{}

	g.Go(func() error {
		bundle.ExternalEmotion = runTask(gctx, o.perTaskTimeout, tasks.ExternalEmotion)
		return nil
	})
	g.Go(func() error {
		bundle.IntrinsicEmotion = runTask(gctx, o.perTaskTimeout, tasks.IntrinsicEmotion)
		return nil
	})
	g.Go(func() error {
		bundle.Personality = runTask(gctx, o.perTaskTimeout, tasks.Personality)
		return nil
	})
	g.Go(func() error {
		bundle.HumanLike = runTask(gctx, o.perTaskTimeout, tasks.HumanLike)
		return nil
	})

	// Tasks never return an error themselves (failures are swallowed inside
	// runTask), so Wait only blocks until all four finish or the global
	// deadline cancels gctx.
	_ = g.Wait()
	return bundle
}

// runTask executes one task with its own timeout, isolating panics and
// errors so a single failing task never prevents the others from
// contributing to the bundle.
func runTask[T any](ctx context.Context, timeout time.Duration, task func(ctx context.Context) (*T, error)) (result *T) {
	if task == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			result = nil
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan *T, 1)
	go func() {
		defer func() {
			if recover() != nil {
				done <- nil
				return
			}
		}()
		v, err := task(taskCtx)
		if err != nil {
			done <- nil
			return
		}
		done <- v
	}()

	select {
	case v := <-done:
		return v
	case <-taskCtx.Done():
		return nil
	}
}
