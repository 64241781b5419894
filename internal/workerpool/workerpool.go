// Package workerpool is a small shared pool for fanning out independent
// tasks with bounded concurrency. Callers open a Room per batch, submit
// tasks into it and collect the batch's results; the worker count caps
// how many tasks run at once across all rooms.
package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrQueueFull is returned by Submit when the pool cannot accept more
// work without blocking and the caller opted out of waiting.
var ErrQueueFull = errors.New("workerpool: task queue is full")

type task struct {
	run  func() any
	room *Room
}

// Pool runs submitted tasks on a fixed set of workers.
type Pool struct {
	tasks chan task

	closeOnce sync.Once
	workersWG sync.WaitGroup
}

// Config sizes a Pool. Zero values pick defaults.
type Config struct {
	// Workers is the number of concurrent workers. Defaults to
	// 3x the CPU count.
	Workers int
	// QueueSize is the shared task buffer. Defaults to 1024.
	QueueSize int
}

// New starts a pool. Close must be called to release the workers.
func New(cfg Config) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU() * 3
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1024
	}

	p := &Pool{tasks: make(chan task, cfg.QueueSize)}
	p.workersWG.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.workersWG.Done()
	for t := range p.tasks {
		t.room.results <- t.run()
		t.room.pending.Done()
	}
}

// Close stops accepting work and waits for in-flight tasks to finish.
// Rooms with submitted tasks must be collected before Close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
		p.workersWG.Wait()
	})
}

// Room collects the results of one batch of tasks.
type Room struct {
	pool    *Pool
	results chan any
	pending sync.WaitGroup
}

// NewRoom opens a batch expected to hold at most size concurrent
// results.
func (p *Pool) NewRoom(size int) *Room {
	if size < 1 {
		size = 1
	}
	return &Room{
		pool:    p,
		results: make(chan any, size),
	}
}

// Submit queues one task into the room. It blocks while the pool queue
// is full, unless ctx expires first.
func (r *Room) Submit(ctx context.Context, job func() any) error {
	r.pending.Add(1)
	select {
	case r.pool.tasks <- task{run: job, room: r}:
		return nil
	case <-ctx.Done():
		r.pending.Done()
		return ctx.Err()
	}
}

// TrySubmit queues one task without blocking, failing with ErrQueueFull
// when either the pool queue or the room buffer has no space.
func (r *Room) TrySubmit(job func() any) error {
	if len(r.pool.tasks) == cap(r.pool.tasks) || len(r.results) == cap(r.results) {
		return ErrQueueFull
	}
	r.pending.Add(1)
	r.pool.tasks <- task{run: job, room: r}
	return nil
}

// Collect waits for every submitted task and returns all results in
// completion order. The room must not be reused afterwards.
func (r *Room) Collect() []any {
	go func() {
		r.pending.Wait()
		close(r.results)
	}()

	out := make([]any, 0, cap(r.results))
	for res := range r.results {
		out = append(out, res)
	}
	return out
}
