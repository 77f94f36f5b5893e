// Package engine drives one SART run through its phases and attributes
// participant responses to trials.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/domain/scoring"
	"github.com/ndh707/sart/pkg/logger"
	"github.com/ndh707/sart/pkg/metrics"
)

// RunSpec is everything a run needs at start. The configuration is fixed for
// the run's lifetime.
type RunSpec struct {
	ID        model.RunID
	SessionID string
	Config    model.TaskConfig
	Trials    []model.Trial
}

func (r RunSpec) validate() error {
	if !r.ID.Valid() {
		return &model.ConfigurationError{Field: "run_id", Reason: fmt.Sprintf("unknown run %d", r.ID)}
	}
	if err := r.Config.Validate(); err != nil {
		return err
	}
	if len(r.Trials) != r.Config.Trials {
		return &model.ConfigurationError{
			Field:  "trials",
			Reason: fmt.Sprintf("got %d trials, configuration asks for %d", len(r.Trials), r.Config.Trials),
		}
	}
	for i, t := range r.Trials {
		if t.Index != i {
			return &model.ConfigurationError{Field: "trials", Reason: fmt.Sprintf("trial %d carries index %d", i, t.Index)}
		}
	}
	return nil
}

// deadline is one armed timer. Handles are compared by identity so a fire
// that lost the race against a disarm is recognised and dropped.
type deadline struct {
	phase model.Phase
	at    time.Time
	timer Timer
}

// Session is the trial state machine for a sequence of runs.
//
// A Session is not safe for concurrent use. Deadline callbacks run wherever
// the Clock runs them, so the Clock must serialise them with calls into the
// Session. Engine does that by routing both through one queue.
type Session struct {
	clock    Clock
	observer Observer
	logger   logger.Logger
	log      logger.Logger

	ctx   context.Context
	phase model.Phase
	cfg   model.TaskConfig
	run   model.Run
	index int
	slots ring
	armed *deadline
}

// NewSession creates an idle session.
func NewSession(opts ...Option) *Session {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}

	return &Session{
		clock:    s.clock,
		observer: s.observer,
		logger:   s.logger,
		log:      s.logger,
		ctx:      context.Background(),
		phase:    model.PhaseIdle,
	}
}

// Phase returns the current phase.
func (s *Session) Phase() model.Phase { return s.phase }

// RunID returns the run in progress, or zero.
func (s *Session) RunID() model.RunID {
	if !s.phase.Active() {
		return 0
	}
	return s.run.ID
}

// TrialIndex returns the trial being processed, or -1 outside a run.
func (s *Session) TrialIndex() int {
	if !s.phase.Active() {
		return -1
	}
	return s.index
}

// Deadline returns the instant the armed deadline fires.
func (s *Session) Deadline() (time.Time, bool) {
	if s.armed == nil {
		return time.Time{}, false
	}
	return s.armed.at, true
}

// Start begins a run at its first trial.
func (s *Session) Start(ctx context.Context, spec RunSpec) error {
	if s.phase.Active() {
		return fmt.Errorf("%w: run %d already in progress", model.ErrProtocolViolation, s.run.ID)
	}
	if err := spec.validate(); err != nil {
		return err
	}

	s.ctx = context.WithoutCancel(ctx)
	s.cfg = spec.Config
	s.run = model.Run{
		ID:        spec.ID,
		SessionID: spec.SessionID,
		Trials:    model.CloneTrials(spec.Trials),
		StartedAt: s.clock.Now(),
	}
	s.index = 0
	s.slots.clear()
	s.log = s.logger.With(logger.Int("run", int(spec.ID)), logger.String("session_id", spec.SessionID))

	metrics.RecordRunStarted()
	s.log.Info(s.ctx, "run started",
		logger.Int("trials", len(spec.Trials)),
		logger.Int("targets", spec.Config.TargetCount()))

	s.enterStimulus()
	return nil
}

// Respond attributes one response to a trial, or discards it.
func (s *Session) Respond(ctx context.Context, ev model.ResponseEvent) (model.Attribution, error) {
	if !s.phase.Active() {
		return model.Attribution{TrialIndex: -1}, fmt.Errorf("%w: response outside a run", model.ErrProtocolViolation)
	}

	at := ev.At
	if at.IsZero() {
		at = s.clock.Now()
	}

	a := arbitrate(s.phase, &s.slots, at)
	if !a.Accepted {
		metrics.RecordResponseDiscarded(string(a.Reason))
		s.log.Debug(ctx, "response discarded",
			logger.String("phase", s.phase.String()),
			logger.String("reason", string(a.Reason)))
		return a, nil
	}

	metrics.RecordResponseAttributed(string(a.Window), millis(a.ReactionTime))
	s.log.Debug(ctx, "response attributed",
		logger.Int("trial", a.TrialIndex),
		logger.String("window", string(a.Window)),
		logger.Duration("rt", a.ReactionTime),
		logger.Bool("commission", a.Commission))
	s.observer.ResponseRecorded(s.ctx, a)

	if a.Commission {
		s.enterFeedback()
	}
	return a, nil
}

// Stop aborts the run in progress. Trials already finalised are reported in
// an aborted run.
func (s *Session) Stop(ctx context.Context) error {
	if !s.phase.Active() {
		return fmt.Errorf("%w: no run to stop", model.ErrProtocolViolation)
	}

	s.slots.clear()
	s.run.Trials = s.run.Trials[:s.index]
	s.transition(model.PhaseIdle, -1, "", 0, false)

	run := s.finish(true)
	metrics.RecordRunEnded("aborted")
	s.log.Info(ctx, "run aborted", logger.Int("finalised_trials", len(run.Trials)))
	s.observer.RunCompleted(s.ctx, run)
	return nil
}

func (s *Session) enterStimulus() {
	t := &s.run.Trials[s.index]
	t.OnsetAt = s.clock.Now()
	s.slots.show(t)
	metrics.RecordTrialPresented()
	s.transition(model.PhaseStimulus, t.Index, t.Stimulus, s.cfg.StimulusDuration, true)
}

func (s *Session) enterISI() {
	s.slots.hide()
	s.transition(model.PhaseISI, s.index, "", s.cfg.ISI, true)
}

// endISI closes the look-back window. A go trial that reached here without a
// press is an omission.
func (s *Session) endISI() {
	t := s.slots.lookBack()
	s.slots.clear()
	if t != nil && !t.IsTarget && !t.Responded() {
		s.enterFeedback()
		return
	}
	s.advance()
}

func (s *Session) enterFeedback() {
	s.slots.clear()
	s.transition(model.PhaseFeedback, s.index, "", s.cfg.FeedbackDuration, true)
}

// advance finalises the current trial and moves on.
func (s *Session) advance() {
	t := &s.run.Trials[s.index]
	t.Outcome = scoring.Classify(*t)
	metrics.RecordTrialOutcome(string(t.Outcome))
	s.log.Debug(s.ctx, "trial finalised",
		logger.Int("trial", t.Index),
		logger.String("outcome", string(t.Outcome)))

	s.index++
	if s.index < len(s.run.Trials) {
		s.enterStimulus()
		return
	}
	s.complete()
}

func (s *Session) complete() {
	s.slots.clear()
	s.transition(model.PhaseComplete, -1, "", 0, false)

	run := s.finish(false)
	metrics.RecordRunEnded("completed")
	s.log.Info(s.ctx, "run completed", logger.Duration("elapsed", run.EndedAt.Sub(run.StartedAt)))
	s.observer.RunCompleted(s.ctx, run)
}

// finish detaches the run from the session and clears run state.
func (s *Session) finish(aborted bool) model.Run {
	run := s.run
	run.Trials = model.CloneTrials(s.run.Trials)
	run.Aborted = aborted
	run.EndedAt = s.clock.Now()

	s.run = model.Run{}
	s.index = 0
	return run
}

// transition disarms any pending deadline before entering the new phase, so
// at most one deadline is ever armed.
func (s *Session) transition(to model.Phase, trial int, stimulus string, d time.Duration, withDeadline bool) {
	s.disarm()

	change := model.PhaseChange{
		From:       s.phase,
		Phase:      to,
		RunID:      s.run.ID,
		TrialIndex: trial,
		Stimulus:   stimulus,
	}
	s.phase = to
	if withDeadline {
		at := s.arm(d)
		change.DeadlineAt = &at
	}

	metrics.RecordPhaseTransition(change.From.String(), to.String())
	s.log.Debug(s.ctx, "phase changed",
		logger.String("from", change.From.String()),
		logger.String("to", to.String()),
		logger.Int("trial", trial))
	s.observer.PhaseChanged(s.ctx, change)
}

func (s *Session) arm(d time.Duration) time.Time {
	if s.armed != nil {
		panic("engine: arming a deadline while another is pending")
	}
	dl := &deadline{phase: s.phase, at: s.clock.Now().Add(d)}
	dl.timer = s.clock.AfterFunc(d, func() { s.expire(dl) })
	s.armed = dl
	return dl.at
}

func (s *Session) disarm() {
	if s.armed == nil {
		return
	}
	s.armed.timer.Stop()
	s.armed = nil
}

func (s *Session) expire(dl *deadline) {
	if dl != s.armed {
		metrics.RecordStaleDeadline()
		s.log.Debug(s.ctx, "stale deadline dropped", logger.String("phase", dl.phase.String()))
		return
	}
	s.armed = nil

	late := s.clock.Now().Sub(dl.at)
	if late < 0 {
		late = 0
	}
	metrics.RecordDeadlineLateness(millis(late))

	switch s.phase {
	case model.PhaseStimulus:
		s.enterISI()
	case model.PhaseISI:
		s.endISI()
	case model.PhaseFeedback:
		s.advance()
	default:
		s.log.Error(s.ctx, "deadline fired outside a run", logger.String("phase", s.phase.String()))
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
