// Package worker provides bounded goroutine pools.
//
// CPU-heavy work (bcrypt) and fire-and-forget background work (audit writes
// that must not block a response) go through a Pool instead of naked goroutines.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"keyport.io/keyport/internal/pkg/logger"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// ErrTaskPanicked is returned by Do when the task panicked.
var ErrTaskPanicked = errors.New("worker task panicked")

// Task is a context-aware task function.
type Task func(ctx context.Context)

// Pool wraps ants.Pool with context-aware submission. A submitter waits
// for a free slot only as long as its context allows.
type Pool struct {
	pool  *ants.Pool
	slots *semaphore.Weighted
	name  string
}

func newPool(p *ants.Pool, name string) *Pool {
	return &Pool{pool: p, slots: semaphore.NewWeighted(int64(p.Cap())), name: name}
}

// Pools is the worker pool collection.
type Pools struct {
	General *Pool
	Hash    *Pool

	// serviceCtx outlives requests and is cancelled on shutdown.
	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// PoolConfig contains worker pool sizes.
type PoolConfig struct {
	GeneralPoolSize int
	HashPoolSize    int
}

// DefaultPoolConfig returns default configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		GeneralPoolSize: 100,
		HashPoolSize:    8,
	}
}

// NewPools creates the worker pool collection.
func NewPools(ctx context.Context, cfg PoolConfig) (*Pools, error) {
	serviceCtx, serviceCancel := context.WithCancel(ctx)

	panicHandler := func(p interface{}) {
		logger.Error("Worker panic recovered",
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	generalAnts, err := ants.NewPool(cfg.GeneralPoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		serviceCancel()
		return nil, err
	}

	// bcrypt saturates a core per task; the hash pool stays small and
	// pre-allocated so login bursts queue instead of starving the scheduler.
	hashAnts, err := ants.NewPool(cfg.HashPoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithPreAlloc(true),
	)
	if err != nil {
		generalAnts.Release()
		serviceCancel()
		return nil, err
	}

	return &Pools{
		General:       newPool(generalAnts, "general"),
		Hash:          newPool(hashAnts, "hash"),
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}, nil
}

// Submit submits a context-aware task.
// If ctx ends before a worker frees up, returns ctx.Err() without submitting.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := p.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	err := p.pool.Submit(func() {
		defer p.slots.Release(1)
		// May have been cancelled while queued.
		select {
		case <-ctx.Done():
			logger.Debug("Task skipped: context cancelled",
				zap.String("pool", p.name),
				zap.Error(ctx.Err()),
			)
			return
		default:
		}
		task(ctx)
	})
	if err != nil {
		p.slots.Release(1)
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return err
	}
	return nil
}

// Do runs task on the pool and waits for it to finish or for ctx to end.
// A nil Pool runs the task inline.
func (p *Pool) Do(ctx context.Context, task Task) error {
	if p == nil {
		task(ctx)
		return nil
	}

	done := make(chan bool, 1)
	err := p.Submit(ctx, func(ctx context.Context) {
		completed := false
		defer func() { done <- completed }()
		task(ctx)
		completed = true
	})
	if err != nil {
		return err
	}

	select {
	case ok := <-done:
		if !ok {
			return ErrTaskPanicked
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitDetached submits a background task bound to the service lifecycle
// instead of a request context. It survives request cancellation but not
// shutdown.
func (p *Pools) SubmitDetached(task Task) error {
	return p.General.Submit(p.serviceCtx, task)
}

// Shutdown cancels detached tasks and waits up to 30s for running ones.
func (p *Pools) Shutdown() {
	p.serviceCancel()

	const shutdownTimeout = 30 * time.Second
	if err := p.General.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("General pool shutdown timeout", zap.Error(err))
	}
	if err := p.Hash.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("Hash pool shutdown timeout", zap.Error(err))
	}
}

// Metrics returns pool occupancy for observability.
func (p *Pools) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"general": poolStats(p.General),
		"hash":    poolStats(p.Hash),
	}
}

func poolStats(p *Pool) map[string]int {
	return map[string]int{
		"running": p.pool.Running(),
		"free":    p.pool.Free(),
		"cap":     p.pool.Cap(),
	}
}
