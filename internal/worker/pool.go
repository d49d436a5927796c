// Package worker runs encode jobs on a fixed set of goroutines.
package worker

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker: pool closed")

// Pool is a pool of goroutines for encode jobs.
//
// Each worker owns a queue and steals from the others when its own is
// empty, so one slow encode does not hold up jobs queued behind it.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	workers int

	// queues holds per-worker job queues.
	queues []chan func()

	// done signals workers to drain their queues and stop.
	done chan struct{}
	wg   sync.WaitGroup

	// mu orders Submit against Close. A job accepted under the read lock
	// is counted in pending until it sits in a queue, and Close waits for
	// pending before closing done, so every accepted job runs.
	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
	running atomic.Bool
}

// NewPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return

		case job := <-own:
			job()

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case job := <-own:
				job()
			}
		}
	}
}

// drain runs everything left in a queue.
func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case job := <-queue:
			job()
		default:
			return
		}
	}
}

// steal takes a job from another worker's queue, or returns nil.
func (p *Pool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case job := <-p.queues[i]:
			return job
		default:
		}
	}
	return nil
}

// Submit queues fn on the worker with the shortest queue. Accepted jobs
// run exactly once, even if Close is called afterwards. A nil fn is
// ignored.
//
// Submit never blocks on a full pool: when every queue is full the job is
// handed over by a separate goroutine, so jobs running on the pool may
// submit more jobs to it.
func (p *Pool) Submit(fn func()) error {
	if fn == nil {
		return nil
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.pending.Add(1)
	p.mu.RUnlock()

	idx, shortest := 0, len(p.queues[0])
	for i := 1; i < p.workers; i++ {
		if n := len(p.queues[i]); n < shortest {
			idx, shortest = i, n
		}
	}
	for i := range p.workers {
		select {
		case p.queues[(idx+i)%p.workers] <- fn:
			p.pending.Done()
			return nil
		default:
		}
	}

	go func() {
		defer p.pending.Done()
		p.queues[idx] <- fn
	}()
	return nil
}

// ExecuteAll runs every job and waits for all of them. On a closed pool
// the jobs run on the calling goroutine instead. It must not be called
// from a job running on the same pool.
func (p *Pool) ExecuteAll(jobs []func()) {
	if len(jobs) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for _, fn := range jobs {
		job := func() {
			defer wg.Done()
			fn()
		}
		if err := p.Submit(job); err != nil {
			job()
		}
	}
	wg.Wait()
}

// Close stops accepting jobs, waits for queued jobs to finish and stops
// the workers. Close is safe to call multiple times.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.running.Store(false)
	p.mu.Unlock()

	p.pending.Wait()
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still accepts jobs.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the approximate number of jobs waiting in queues.
func (p *Pool) QueuedWork() int {
	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	return total
}
