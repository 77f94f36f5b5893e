// Package participant simulates a person doing the task. It watches the
// engine's phase stream and schedules presses the way a mostly attentive
// participant would.
package participant

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/engine"
	"github.com/ndh707/sart/pkg/logger"
)

// Responder accepts presses. *engine.Engine and the task service satisfy it.
type Responder interface {
	Respond(ctx context.Context, ev model.ResponseEvent) (model.Attribution, error)
}

// Stats counts what the participant did.
type Stats struct {
	Presses     int
	Withheld    int
	Omitted     int
	Rejected    int // presses the responder refused
	Discarded   int // presses the arbiter did not attribute
	Attributed  int
	Commissions int
}

// Participant is an engine.Observer that presses on its own schedule.
// Presses are sent from timer goroutines, never from the observer callback.
type Participant struct {
	responder      Responder
	clock          engine.Clock
	target         string
	goLatency      time.Duration
	omissionRate   float64
	commissionRate float64
	logger         logger.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	pending map[uint64]engine.Timer
	nextID  uint64
	stats   Stats
}

// New creates a participant that presses through r.
func New(r Responder, opts ...Option) *Participant {
	task := model.DefaultTaskConfig()
	p := &Participant{
		responder:      r,
		clock:          engine.SystemClock(),
		target:         task.TargetDigit,
		goLatency:      350 * time.Millisecond,
		omissionRate:   0.05,
		commissionRate: 0.5,
		pending:        make(map[uint64]engine.Timer),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // simulated behaviour
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("participant")
	}
	return p
}

// Stats returns a copy of the counters.
func (p *Participant) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// PhaseChanged decides what to do about each new stimulus.
func (p *Participant) PhaseChanged(ctx context.Context, c model.PhaseChange) {
	if c.Phase != model.PhaseStimulus {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	target := c.Stimulus == p.target
	roll := p.rng.Float64()
	switch {
	case target && roll >= p.commissionRate:
		p.stats.Withheld++
		return
	case !target && roll < p.omissionRate:
		p.stats.Omitted++
		return
	}

	delay := p.latency()
	p.stats.Presses++
	p.nextID++
	id := p.nextID
	p.pending[id] = p.clock.AfterFunc(delay, func() { p.press(ctx, id) })
	p.logger.Debug(ctx, "press scheduled",
		logger.Int("trial", c.TrialIndex),
		logger.Bool("target", target),
		logger.Duration("delay", delay))
}

// ResponseRecorded counts attributed presses.
func (p *Participant) ResponseRecorded(_ context.Context, a model.Attribution) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Attributed++
	if a.Commission {
		p.stats.Commissions++
	}
}

// RunCompleted cancels every press that has not happened yet.
func (p *Participant) RunCompleted(context.Context, model.Run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.pending {
		t.Stop()
		delete(p.pending, id)
	}
}

// latency draws goLatency +/- 25%. Callers hold mu.
func (p *Participant) latency() time.Duration {
	spread := int64(p.goLatency / 4)
	if spread == 0 {
		return p.goLatency
	}
	return p.goLatency - time.Duration(spread) + time.Duration(p.rng.Int63n(2*spread+1))
}

func (p *Participant) press(ctx context.Context, id uint64) {
	p.mu.Lock()
	_, live := p.pending[id]
	delete(p.pending, id)
	p.mu.Unlock()
	if !live {
		return
	}

	a, err := p.responder.Respond(ctx, model.ResponseEvent{})

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case err != nil:
		p.stats.Rejected++
		// Late presses after a run ends are expected.
		p.logger.Debug(ctx, "press refused", logger.Error(err))
	case !a.Accepted:
		p.stats.Discarded++
	}
}
