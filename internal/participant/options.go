package participant

import (
	"math/rand"
	"time"

	"github.com/ndh707/sart/internal/engine"
	"github.com/ndh707/sart/pkg/logger"
)

// Option configures a Participant.
type Option func(*Participant)

// WithTargetDigit tells the participant which symbol to withhold on.
func WithTargetDigit(d string) Option {
	return func(p *Participant) {
		if d != "" {
			p.target = d
		}
	}
}

// WithGoLatency sets the typical press latency on go trials. Each press
// varies by up to a quarter of it either way.
func WithGoLatency(d time.Duration) Option {
	return func(p *Participant) {
		if d >= 0 {
			p.goLatency = d
		}
	}
}

// WithOmissionRate sets the chance of missing a go trial.
func WithOmissionRate(r float64) Option {
	return func(p *Participant) {
		if r >= 0 && r <= 1 {
			p.omissionRate = r
		}
	}
}

// WithCommissionRate sets the chance of pressing on a target.
func WithCommissionRate(r float64) Option {
	return func(p *Participant) {
		if r >= 0 && r <= 1 {
			p.commissionRate = r
		}
	}
}

// WithSeed makes the participant's choices reproducible.
func WithSeed(seed int64) Option {
	return func(p *Participant) {
		p.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // simulated behaviour
	}
}

// WithClock sets the clock presses are scheduled on.
func WithClock(c engine.Clock) Option {
	return func(p *Participant) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Participant) {
		if l != nil {
			p.logger = l
		}
	}
}
