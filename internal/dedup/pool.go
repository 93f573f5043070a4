package dedup

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-dedup/internal/cluster"
)

// Task is one batch of record indices to compare pairwise.
type Task struct {
	Batch   int
	Indices []int
	Run     func(ctx context.Context) ([]cluster.Edge, error)
}

// BatchResult is the outcome of one task.
type BatchResult struct {
	Edges []cluster.Edge
	Err   error
}

// Future yields a task's result once it has run.
type Future interface {
	Wait() BatchResult
}

// Pool executes batch tasks. Submit may block until the pool has capacity.
type Pool interface {
	Submit(ctx context.Context, t Task) Future
	Close() error
}

type future struct {
	done chan struct{}
	res  BatchResult
}

func newFuture() *future { return &future{done: make(chan struct{})} }

func (f *future) resolve(r BatchResult) {
	f.res = r
	close(f.done)
}

func (f *future) Wait() BatchResult {
	<-f.done
	return f.res
}

// runTask runs t, turning a panic into an error.
func runTask(ctx context.Context, t Task) (res BatchResult) {
	defer func() {
		if p := recover(); p != nil {
			res = BatchResult{Err: eris.Errorf("dedup: batch %d panicked: %v", t.Batch, p)}
		}
	}()
	edges, err := t.Run(ctx)
	return BatchResult{Edges: edges, Err: err}
}

// SyncPool runs each task inline on Submit. Results are deterministic and
// it needs no Close.
type SyncPool struct{}

// Submit implements Pool.
func (SyncPool) Submit(ctx context.Context, t Task) Future {
	f := newFuture()
	f.resolve(runTask(ctx, t))
	return f
}

// Close implements Pool.
func (SyncPool) Close() error { return nil }

// WorkerPool runs tasks on at most Size goroutines.
type WorkerPool struct {
	g    *errgroup.Group
	size int
}

// NewWorkerPool returns a pool of min(maxWorkers, NumCPU) workers, at
// least one.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	size := max(min(maxWorkers, runtime.NumCPU()), 1)
	g := new(errgroup.Group)
	g.SetLimit(size)
	return &WorkerPool{g: g, size: size}
}

// Size returns the number of workers.
func (p *WorkerPool) Size() int { return p.size }

// Submit implements Pool. It blocks while all workers are busy.
func (p *WorkerPool) Submit(ctx context.Context, t Task) Future {
	f := newFuture()
	p.g.Go(func() error {
		f.resolve(runTask(ctx, t))
		return nil // failures travel in the result, not the group
	})
	return f
}

// Close waits for every submitted task.
func (p *WorkerPool) Close() error {
	return p.g.Wait()
}
