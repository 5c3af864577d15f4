package chat

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Pool is a supervised worker pool for webhook background processing. The
// webhook handler never blocks on it: when the queue is full the job is
// dropped and counted. Panicking jobs are recovered, logged and counted
// instead of taking the process down.
type Pool struct {
	workers  int
	jobs     chan job
	wg       sync.WaitGroup
	failures atomic.Uint64
	dropped  atomic.Uint64
}

type job struct {
	id   string
	name string
	run  func(ctx context.Context)
}

// NewPool creates a Pool with the given worker count and queue capacity.
func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{workers: workers, jobs: make(chan job, queueSize)}
}

// Start launches the workers. They exit when ctx is cancelled and the queue
// has drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Submit schedules fn for execution. Returns false when the queue is full.
func (p *Pool) Submit(name string, fn func(ctx context.Context)) bool {
	j := job{id: uuid.NewString(), name: name, run: fn}
	select {
	case p.jobs <- j:
		return true
	default:
		p.dropped.Add(1)
		log.Printf("chat: pool queue full, dropped job %s [%s]", j.name, j.id)
		return false
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Failures returns the number of jobs that panicked.
func (p *Pool) Failures() uint64 { return p.failures.Load() }

// Dropped returns the number of jobs rejected on a full queue.
func (p *Pool) Dropped() uint64 { return p.dropped.Load() }

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued, then exit.
			for {
				select {
				case j := <-p.jobs:
					p.execute(ctx, j)
				default:
					return
				}
			}
		case j := <-p.jobs:
			p.execute(ctx, j)
		}
	}
}

func (p *Pool) execute(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			p.failures.Add(1)
			log.Printf("chat: job %s [%s] panicked: %v", j.name, j.id, r)
		}
	}()
	j.run(ctx)
}
