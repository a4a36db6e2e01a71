package worker

import "sync"

type Job[T any] func() T

type Result[T any] struct {
	JobID  string
	Output T
}

// Pool runs submitted jobs on a fixed set of goroutines. Results must be
// drained by the caller; Close stops accepting jobs and closes Results once
// every job has finished.
type Pool[T any] struct {
	jobs    chan jobWrapper[T]
	results chan Result[T]
	wg      sync.WaitGroup
	once    sync.Once
}

type jobWrapper[T any] struct {
	id string
	fn Job[T]
}

func NewPool[T any](workerCount int, bufferSize int) *Pool[T] {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool[T]{
		jobs:    make(chan jobWrapper[T], bufferSize),
		results: make(chan Result[T], bufferSize),
	}

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	return p
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		output := job.fn()
		p.results <- Result[T]{
			JobID:  job.id,
			Output: output,
		}
	}
}

func (p *Pool[T]) Submit(id string, fn Job[T]) {
	p.jobs <- jobWrapper[T]{id: id, fn: fn}
}

func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}

func (p *Pool[T]) Close() {
	p.once.Do(func() { close(p.jobs) })
}

// Run submits one job per id, waits for all of them and returns the outputs
// keyed by id.
func Run[T any](workerCount int, ids []string, fn func(id string) T) map[string]T {
	p := NewPool[T](workerCount, len(ids))
	go func() {
		for _, id := range ids {
			id := id
			p.Submit(id, func() T { return fn(id) })
		}
		p.Close()
	}()

	out := make(map[string]T, len(ids))
	for r := range p.Results() {
		out[r.JobID] = r.Output
	}
	return out
}
