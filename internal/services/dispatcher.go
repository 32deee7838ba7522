package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"wallet/internal/log"
)

const (
	dispatchQueueSize      = 256
	defaultDispatchTimeout = 5 * time.Second
)

var errDispatcherClosed = errors.New("dispatcher closed")

type job struct {
	name string
	ctx  context.Context
	run  func(ctx context.Context)
}

// dispatcher runs notification and sync side effects one at a time, in
// submission order, on its own goroutine. Each job gets its own deadline.
type dispatcher struct {
	mu      sync.RWMutex
	closed  bool
	queue   chan job
	done    chan struct{}
	timeout time.Duration
	logger  *log.Logger
}

func newDispatcher(timeout time.Duration, logger *log.Logger) *dispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	d := &dispatcher{
		queue:   make(chan job, dispatchQueueSize),
		done:    make(chan struct{}),
		timeout: timeout,
		logger:  logger,
	}
	go d.loop()
	return d
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for j := range d.queue {
		d.run(j)
	}
}

func (d *dispatcher) run(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "Dispatched job panicked", "job", j.name, "panic", r)
		}
	}()
	j.run(ctx)
}

// submit queues fn without blocking. The job keeps the values of ctx but not
// its cancellation. A full or closed queue drops the job.
func (d *dispatcher) submit(ctx context.Context, name string, fn func(ctx context.Context)) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WarnContext(ctx, "Dispatcher closed, dropping job", "job", name)
		return errDispatcherClosed
	}
	select {
	case d.queue <- job{name: name, ctx: context.WithoutCancel(ctx), run: fn}:
		return nil
	default:
		d.logger.WarnContext(ctx, "Dispatch queue full, dropping job", "job", name, "queue_size", cap(d.queue))
		return errors.New("dispatch queue full")
	}
}

// flush returns once every job submitted before it has run.
func (d *dispatcher) flush(ctx context.Context) error {
	reached := make(chan struct{})
	if err := d.submit(ctx, "flush", func(context.Context) { close(reached) }); err != nil {
		return err
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop refuses new jobs and waits for the queued ones. Safe to call more than once.
func (d *dispatcher) stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
