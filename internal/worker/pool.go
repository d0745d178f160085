package worker

import (
	"context"
	"fmt"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// PanicError is reported for a job whose Execute panicked
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

// panicResult is emitted in place of the result of a panicking job
type panicResult struct {
	job Job
	err *PanicError
}

func (r *panicResult) GetError() error {
	return r.err
}

// FailedJob returns the job of a result produced by a panic, if any
func FailedJob(r Result) (Job, bool) {
	pr, ok := r.(*panicResult)
	if !ok {
		return nil, false
	}
	return pr.job, true
}

// Pool manages a pool of workers that execute jobs concurrently
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	queueOnce  sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a pool whose workers stop when ctx is done
func NewPoolWithContext(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2), // Buffered to prevent blocking
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()
}

// worker is the worker goroutine that processes jobs
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			// Results of finished jobs are always delivered
			p.results <- p.execute(job)
		}
	}
}

// execute runs job, converting a panic into a failed result
func (p *Pool) execute(job Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &panicResult{job: job, err: &PanicError{Value: r}}
		}
	}()
	return job.Execute(p.ctx)
}

// Submit submits a job to the pool for execution.
// It reports false when the pool was cancelled before the job was queued.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Close signals that no more jobs will be submitted
func (p *Pool) Close() {
	p.queueOnce.Do(func() {
		close(p.jobQueue)
	})
}

// Results streams results as jobs finish. The channel is closed once every
// worker has exited.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Wait closes the queue and returns all results. Use it only when every job
// was submitted beforehand and fits in the buffers; otherwise submit from a
// separate goroutine and range over Results.
func (p *Pool) Wait() []Result {
	p.Close()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}

	return results
}

// Shutdown shuts down the worker pool immediately. Results nobody has
// received yet are discarded.
func (p *Pool) Shutdown() {
	p.cancelFunc()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			p.closeResults()
			return
		case _, ok := <-p.results:
			if !ok {
				<-done
				return
			}
		}
	}
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
