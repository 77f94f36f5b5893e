// Package service runs the two-run SART protocol: it generates each run's
// sequence, drives it through the engine and keeps the completed runs.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/domain/scoring"
	"github.com/ndh707/sart/internal/domain/sequence"
	"github.com/ndh707/sart/internal/engine"
	"github.com/ndh707/sart/pkg/logger"
)

// RunResult is a completed run with its metrics.
type RunResult struct {
	Run     model.Run       `json:"run" yaml:"run"`
	Summary scoring.Summary `json:"summary" yaml:"summary"`
}

// Results holds whatever runs of the session have completed.
type Results struct {
	SessionID string     `json:"session_id" yaml:"session_id"`
	Seed      int64      `json:"seed" yaml:"seed"`
	RunOne    *RunResult `json:"run_one,omitempty" yaml:"run_one,omitempty"`
	RunTwo    *RunResult `json:"run_two,omitempty" yaml:"run_two,omitempty"`
}

// Comparison returns run two against run one when both are present.
func (r Results) Comparison() (scoring.Comparison, bool) {
	if r.RunOne == nil || r.RunTwo == nil {
		return scoring.Comparison{}, false
	}
	return scoring.Comparison{RunOne: r.RunOne.Summary, RunTwo: r.RunTwo.Summary}, true
}

// Service owns one participant session.
type Service struct {
	mu sync.RWMutex

	// Configuration
	task      model.TaskConfig
	seed      int64
	queueSize int
	clock     engine.Clock
	observers []engine.Observer

	// Components
	generator *sequence.Generator
	engine    *engine.Engine

	// State
	started   bool
	sessionID string
	runs      map[model.RunID]model.Run
	done      map[model.RunID]chan struct{}

	// active is the slot whose run the engine is executing; zero when idle.
	active     model.RunID
	activeDone chan struct{}

	logger logger.Logger
}

// New constructs a Service with the default task configuration.
func New(opts ...Option) *Service {
	s := &Service{
		task:      model.DefaultTaskConfig(),
		queueSize: 256,
		clock:     engine.SystemClock(),
		runs:      make(map[model.RunID]model.Run),
		done:      make(map[model.RunID]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the configuration and starts the engine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if err := s.task.Validate(); err != nil {
		return err
	}

	genOpts := []sequence.Option{sequence.WithLogger(s.logger.Named("sequence"))}
	if s.seed != 0 {
		genOpts = append(genOpts, sequence.WithSeed(s.seed))
	}
	gen, err := sequence.NewGenerator(genOpts...)
	if err != nil {
		return fmt.Errorf("create sequence generator: %w", err)
	}
	s.generator = gen

	s.sessionID = uuid.NewString()
	s.engine = engine.New(
		engine.WithClock(s.clock),
		engine.WithQueueSize(s.queueSize),
		engine.WithObserver(engine.Observers(append([]engine.Observer{collector{s}}, s.observers...))),
		engine.WithLogger(s.logger.Named("engine")),
	)
	if err := s.engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "session started",
		logger.String("session_id", s.sessionID),
		logger.Any("seed", gen.Seed()),
		logger.Int("trials", s.task.Trials))
	return nil
}

// Stop aborts any run in progress and stops the engine.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	eng := s.engine
	s.mu.Unlock()

	if err := eng.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "session stopped", logger.String("session_id", s.sessionID))
	return nil
}

// SessionID identifies this participant session in logs and reports.
func (s *Service) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// TaskConfig returns the configuration every run uses.
func (s *Service) TaskConfig() model.TaskConfig {
	return s.task
}

// BeginRun generates a fresh sequence and starts it in the given slot. A
// previous result in that slot is replaced once the engine accepts the run;
// a rejected start leaves every slot as it was.
func (s *Service) BeginRun(ctx context.Context, id model.RunID) error {
	eng, err := s.running()
	if err != nil {
		return err
	}

	trials, err := s.generator.Generate(ctx, s.task)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.active != 0 {
		active := s.active
		s.mu.Unlock()
		return fmt.Errorf("%w: run %d already in progress", model.ErrProtocolViolation, active)
	}
	done := make(chan struct{})
	s.active, s.activeDone = id, done
	sessionID := s.sessionID
	s.mu.Unlock()

	err = eng.StartRun(ctx, engine.RunSpec{ID: id, SessionID: sessionID, Config: s.task, Trials: trials})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.activeDone == done {
			s.active, s.activeDone = 0, nil
		}
		return err
	}
	// The run may already have ended and been stored by the time we get here.
	if s.activeDone == done {
		delete(s.runs, id)
	}
	s.done[id] = done
	return nil
}

// Respond forwards one press to the engine.
func (s *Service) Respond(ctx context.Context, ev model.ResponseEvent) (model.Attribution, error) {
	eng, err := s.running()
	if err != nil {
		return model.Attribution{TrialIndex: -1}, err
	}
	return eng.Respond(ctx, ev)
}

// AbortRun stops the run in progress.
func (s *Service) AbortRun(ctx context.Context) error {
	eng, err := s.running()
	if err != nil {
		return err
	}
	return eng.StopRun(ctx)
}

// Wait blocks until the run in the given slot has ended.
func (s *Service) Wait(ctx context.Context, id model.RunID) (model.Run, error) {
	s.mu.RLock()
	done, ok := s.done[id]
	s.mu.RUnlock()
	if !ok {
		return model.Run{}, fmt.Errorf("%w: run %d", ErrRunNotStarted, id)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return model.Run{}, ctx.Err()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs[id], nil
}

// Completed returns the run stored in the slot, if it has ended.
func (s *Service) Completed(id model.RunID) (model.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

// Flush returns once every engine event queued before the call is applied.
func (s *Service) Flush(ctx context.Context) error {
	eng, err := s.running()
	if err != nil {
		return err
	}
	return eng.Flush(ctx)
}

// Snapshot returns the engine's current phase for debug readouts.
func (s *Service) Snapshot() engine.Snapshot {
	s.mu.RLock()
	eng := s.engine
	s.mu.RUnlock()
	if eng == nil {
		return engine.Snapshot{Phase: model.PhaseIdle, TrialIndex: -1}
	}
	return eng.Snapshot()
}

// Results computes metrics for every completed run.
func (s *Service) Results() (Results, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := Results{SessionID: s.sessionID}
	if s.generator != nil {
		r.Seed = s.generator.Seed()
	}
	if run, ok := s.runs[model.RunOne]; ok {
		r.RunOne = &RunResult{Run: run, Summary: scoring.Calculate(run.Trials)}
	}
	if run, ok := s.runs[model.RunTwo]; ok {
		r.RunTwo = &RunResult{Run: run, Summary: scoring.Calculate(run.Trials)}
	}
	if r.RunOne == nil && r.RunTwo == nil {
		return r, ErrResultsMissing
	}
	return r, nil
}

func (s *Service) running() (*engine.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

func (s *Service) store(ctx context.Context, run model.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	if s.active == run.ID && s.activeDone != nil {
		close(s.activeDone)
		s.active, s.activeDone = 0, nil
	}
	s.logger.Info(ctx, "run stored",
		logger.Int("run", int(run.ID)),
		logger.Int("trials", len(run.Trials)),
		logger.Bool("aborted", run.Aborted))
}

// collector routes completed runs into their slots.
type collector struct {
	s *Service
}

func (collector) PhaseChanged(context.Context, model.PhaseChange)     {}
func (collector) ResponseRecorded(context.Context, model.Attribution) {}

func (c collector) RunCompleted(ctx context.Context, run model.Run) {
	c.s.store(ctx, run)
}
