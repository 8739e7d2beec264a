package batch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("batch: pool closed")

// TaskFunc runs one unit of work on a worker. worker identifies the worker
// goroutine, for diagnostics only; tasks never depend on it.
type TaskFunc func(ctx context.Context, worker int)

// Pool runs tasks on a fixed set of workers. Tasks are independent: no task
// blocks on, signals, or observes another. A panicking task takes down
// neither its worker nor its siblings.
type Pool struct {
	status int32
	max    int
	tasks  chan TaskFunc
	closed chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewPool(maxConcurrent int) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	pool := &Pool{
		max:    maxConcurrent,
		tasks:  make(chan TaskFunc),
		closed: make(chan struct{}),
		logger: zap.L(),
	}
	pool.startWorkers()
	return pool
}

func (pool *Pool) MaxConcurrent() int {
	return pool.max
}

// Feed hands one task to a worker, blocking until a worker accepts it, the
// context ends, or the pool closes.
func (pool *Pool) Feed(ctx context.Context, f TaskFunc) error {
	select {
	case <-pool.closed:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case pool.tasks <- f:
		return nil
	}
}

func (pool *Pool) startWorkers() {
	pool.wg.Add(pool.max)
	for i := 0; i < pool.max; i++ {
		go func(idx int) {
			defer pool.wg.Done()
			for {
				select {
				case <-pool.closed:
					return
				case f := <-pool.tasks:
					pool.runOne(idx, f)
				}
			}
		}(i)
	}
}

func (pool *Pool) runOne(worker int, f TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			pool.logger.Error("task panic",
				zap.Int("worker", worker),
				zap.Any("panic", r),
			)
		}
	}()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-pool.closed:
			cancel()
		case <-ctx.Done():
		}
	}()
	f(ctx, worker)
}

// Close stops accepting tasks and waits for in-flight ones to return.
func (pool *Pool) Close() error {
	if atomic.CompareAndSwapInt32(&pool.status, 0, -1) {
		close(pool.closed)
	}
	pool.wg.Wait()
	return nil
}
