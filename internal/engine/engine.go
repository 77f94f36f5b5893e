package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ndh707/sart/internal/adapters/mq/queue"
	"github.com/ndh707/sart/internal/adapters/mq/worker"
	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/pkg/logger"
	"github.com/ndh707/sart/pkg/metrics"
)

const defaultQueueSize = 256

type commandKind int

const (
	cmdStart commandKind = iota
	cmdRespond
	cmdStop
	cmdDeadline
	cmdFlush
)

func (k commandKind) String() string {
	switch k {
	case cmdStart:
		return "start"
	case cmdRespond:
		return "respond"
	case cmdStop:
		return "stop"
	case cmdDeadline:
		return "deadline"
	case cmdFlush:
		return "flush"
	default:
		return "unknown"
	}
}

type result struct {
	attribution model.Attribution
	err         error
}

// command is one serialised input to the session.
type command struct {
	kind  commandKind
	ctx   context.Context
	spec  RunSpec
	event model.ResponseEvent
	fire  func()
	reply chan result
}

// Engine runs a Session on a single event loop. Responses, stop requests and
// deadline expiries are queued and applied one at a time in arrival order.
type Engine struct {
	settings settings
	session  *Session
	snap     *snapshotter
	logger   logger.Logger

	mu      sync.Mutex
	queue   *queue.InMemoryQueue[command]
	worker  *worker.InMemoryWorker[command]
	cancel  context.CancelFunc
	running bool
}

// New creates a stopped engine.
func New(opts ...Option) *Engine {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("engine")
	}

	e := &Engine{
		settings: s,
		snap:     newSnapshotter(),
		logger:   s.logger,
	}
	e.session = NewSession(
		WithClock(queuedClock{Clock: s.clock, engine: e}),
		WithObserver(Observers{e.snap, s.observer}),
		WithLogger(s.logger.Named("session")),
	)
	return e
}

// Start launches the event loop. It returns once the loop is accepting events.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}

	e.queue = queue.NewInMemoryQueue[command](
		queue.WithCapacity(e.settings.queueSize),
		queue.WithBufferSize(e.settings.queueSize),
	)
	e.worker = worker.NewInMemoryWorker[command](
		e.queue,
		worker.HandlerFunc[command](e.handle),
		worker.WithName("engine"),
		worker.WithLogger(e.logger),
	)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.running = true
	go e.worker.Run(loopCtx)

	e.logger.Info(ctx, "engine started", logger.Int("queue_size", e.settings.queueSize))
	return nil
}

// Shutdown aborts any run in progress and stops the event loop.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	q, w, cancel := e.queue, e.worker, e.cancel
	e.mu.Unlock()

	if err := e.submit(ctx, q, w, command{kind: cmdStop}); err != nil && !errors.Is(err, model.ErrProtocolViolation) {
		e.logger.Warn(ctx, "abort on shutdown failed", logger.Error(err))
	}

	if err := q.Close(); err != nil {
		e.logger.Warn(ctx, "queue close failed", logger.Error(err))
	}
	err := w.Shutdown(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("engine shutdown: %w", err)
	}
	e.logger.Info(ctx, "engine stopped")
	return nil
}

// StartRun begins a run. It fails with model.ErrProtocolViolation while
// another run is in progress.
func (e *Engine) StartRun(ctx context.Context, spec RunSpec) error {
	return e.call(ctx, command{kind: cmdStart, spec: spec})
}

// StopRun aborts the run in progress.
func (e *Engine) StopRun(ctx context.Context) error {
	return e.call(ctx, command{kind: cmdStop})
}

// Respond submits one response and waits for its attribution. It never blocks
// on a full queue: the response is refused with ErrBackpressure instead.
func (e *Engine) Respond(ctx context.Context, ev model.ResponseEvent) (model.Attribution, error) {
	if ev.At.IsZero() {
		ev.At = e.settings.clock.Now()
	}

	q, w, err := e.loop()
	if err != nil {
		return model.Attribution{TrialIndex: -1}, err
	}

	cmd := command{kind: cmdRespond, ctx: ctx, event: ev, reply: make(chan result, 1)}
	if !q.Enqueue(ctx, cmd) {
		if q.IsClosed() {
			return model.Attribution{TrialIndex: -1}, ErrNotRunning
		}
		return model.Attribution{TrialIndex: -1}, ErrBackpressure
	}
	return e.await(ctx, w, cmd.reply)
}

// Flush returns once every event queued before the call has been applied.
func (e *Engine) Flush(ctx context.Context) error {
	return e.call(ctx, command{kind: cmdFlush})
}

// Snapshot returns the latest phase readout. It is safe to call from any
// goroutine.
func (e *Engine) Snapshot() Snapshot {
	return e.snap.load()
}

func (e *Engine) loop() (*queue.InMemoryQueue[command], *worker.InMemoryWorker[command], error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil, nil, ErrNotRunning
	}
	return e.queue, e.worker, nil
}

func (e *Engine) call(ctx context.Context, cmd command) error {
	q, w, err := e.loop()
	if err != nil {
		return err
	}
	return e.submit(ctx, q, w, cmd)
}

func (e *Engine) submit(ctx context.Context, q *queue.InMemoryQueue[command], w *worker.InMemoryWorker[command], cmd command) error {
	if cmd.ctx == nil {
		cmd.ctx = ctx
	}
	cmd.reply = make(chan result, 1)
	if err := q.Put(ctx, cmd); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrNotRunning
		}
		return err
	}
	_, err := e.await(ctx, w, cmd.reply)
	return err
}

func (e *Engine) await(ctx context.Context, w *worker.InMemoryWorker[command], reply <-chan result) (model.Attribution, error) {
	select {
	case r := <-reply:
		return r.attribution, r.err
	case <-w.Done():
		return model.Attribution{TrialIndex: -1}, ErrNotRunning
	case <-ctx.Done():
		return model.Attribution{TrialIndex: -1}, ctx.Err()
	}
}

// handle runs on the event loop goroutine only.
func (e *Engine) handle(_ context.Context, cmd command) error {
	var r result
	switch cmd.kind {
	case cmdStart:
		r.err = e.session.Start(cmd.ctx, cmd.spec)
	case cmdRespond:
		r.attribution, r.err = e.session.Respond(cmd.ctx, cmd.event)
	case cmdStop:
		r.err = e.session.Stop(cmd.ctx)
	case cmdDeadline:
		cmd.fire()
	case cmdFlush:
	}

	if cmd.reply != nil {
		cmd.reply <- r
	}
	if r.err != nil {
		metrics.RecordErrorByComponent("engine", cmd.kind.String())
		return fmt.Errorf("%s: %w", cmd.kind, r.err)
	}
	return nil
}

// queuedClock arms timers on the real clock but delivers their expiry through
// the engine queue, so a deadline never runs concurrently with a response.
type queuedClock struct {
	Clock
	engine *Engine
}

func (c queuedClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.Clock.AfterFunc(d, func() {
		q, _, err := c.engine.loop()
		if err != nil {
			return
		}
		if err := q.Put(context.Background(), command{kind: cmdDeadline, fire: f}); err != nil {
			c.engine.logger.Debug(context.Background(), "deadline dropped", logger.Error(err))
		}
	})
}
