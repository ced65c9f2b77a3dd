// Package parallel runs texture conversion work on a fixed set of worker
// goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a pool of goroutines splitting row ranges across workers.
//
// Each worker owns a queue and steals from the others when its own queue is
// empty, so bands that convert slower formats do not stall the rest.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewPool starts a pool with the given number of workers. If workers is 0
// or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), 4)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case fn := <-own:
			fn()
			continue
		default:
		}

		if fn := p.steal(id); fn != nil {
			fn()
			continue
		}
		select {
		case <-p.done:
			p.drain(own)
			return
		case fn := <-own:
			fn()
		}
	}
}

func (p *Pool) drain(q chan func()) {
	for {
		select {
		case fn := <-q:
			fn()
		default:
			return
		}
	}
}

func (p *Pool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case fn := <-p.queues[i]:
			return fn
		default:
		}
	}
	return nil
}

// Rows calls fn once for every row in [0, n) and returns when all calls
// finished. Rows are split into one contiguous band per worker. A single
// row, a single worker or a closed pool runs fn on the calling goroutine.
// Rows must not race with Close.
func (p *Pool) Rows(n int, fn func(row int)) {
	if n <= 0 {
		return
	}
	bands := min(n, p.workers)
	if bands == 1 || !p.running.Load() {
		for row := range n {
			fn(row)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(bands)
	for b := range bands {
		lo, hi := b*n/bands, (b+1)*n/bands
		band := func() {
			defer wg.Done()
			for row := lo; row < hi; row++ {
				fn(row)
			}
		}
		select {
		case p.queues[b] <- band:
		case <-p.done:
			band()
		}
	}
	wg.Wait()
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.workers
}

// Close stops the workers after queued bands finished. Close is safe to
// call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}
