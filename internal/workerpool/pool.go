// Package workerpool runs submitted tasks on a fixed number of goroutines.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/dmitrijs2005/gophdrop/internal/logging"
)

// DefaultWorkers is used by callers that do not configure a size.
const DefaultWorkers = 4

// ErrStopped is returned by Submit once Shutdown has been called.
var ErrStopped = errors.New("worker pool stopped")

// Task is a unit of work. A task owns everything it captures.
type Task func()

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Workers int
	Queued  int
	Running int
}

// Pool is a fixed set of workers draining an unbounded FIFO queue.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	stopped bool
	running int
	workers int

	wg     sync.WaitGroup
	logger logging.Logger
}

// New starts w workers. Values below 1 are treated as 1.
func New(w int, logger logging.Logger) *Pool {
	if w < 1 {
		w = 1
	}
	p := &Pool{
		workers: w,
		logger:  logger.With("module", "workerpool"),
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(w)
	for i := 0; i < w; i++ {
		go p.worker(i)
	}
	return p
}

// Submit appends task to the queue and wakes one idle worker. It never blocks
// on queue capacity.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrStopped
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
	return nil
}

// Shutdown stops accepting tasks and blocks until every queued and running
// task has finished. It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.stopped = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats reports the current queue depth and number of busy workers.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Workers: p.workers, Queued: len(p.queue), Running: p.running}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.running++
		p.mu.Unlock()

		p.run(id, task)

		p.mu.Lock()
		p.running--
		p.mu.Unlock()
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(context.Background(), "task panicked",
				"worker", id,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	task()
}
