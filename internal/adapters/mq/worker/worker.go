// Package worker runs a single consumer loop over a queue.
//
// Exactly one worker drains a queue, so the handler sees events strictly in
// enqueue order and never concurrently with itself.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ndh707/sart/pkg/logger"
	"github.com/ndh707/sart/pkg/metrics"
)

// Handler applies one event.
type Handler[T any] interface {
	Handle(ctx context.Context, e T) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, e T) error

// Handle calls f.
func (f HandlerFunc[T]) Handle(ctx context.Context, e T) error { return f(ctx, e) }

// Queue defines how workers receive events.
type Queue[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Worker processes events using the provided handler.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called or
	// the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error

	// Done is closed once the loop has exited.
	Done() <-chan struct{}
}

// InMemoryWorker implements Worker for a single in-process queue.
type InMemoryWorker[T any] struct {
	queue   Queue[T]
	handler Handler[T]
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker[T any](queue Queue[T], handler Handler[T], opts ...Option) *InMemoryWorker[T] {
	s := settings{name: "worker"}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("worker")
	}

	return &InMemoryWorker[T]{
		queue:    queue,
		handler:  handler,
		name:     s.name,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   s.logger.With(logger.String("worker", s.name)),
	}
}

// Run starts the worker loop.
func (w *InMemoryWorker[T]) Run(ctx context.Context) {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			w.process(ctx, event)
		}
	}
}

func (w *InMemoryWorker[T]) process(ctx context.Context, event T) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.handler.Handle(ctx, event); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "handler_error")
		w.logger.Debug(ctx, "handler rejected event", logger.Error(err))
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker[T]) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker[T]) Done() <-chan struct{} {
	return w.done
}
