// Package sequence builds the ordered trial list of a run.
package sequence

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"

	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/pkg/logger"
)

// Generator places targets by rejection sampling and fills go trials with
// uniformly drawn non-target symbols.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	seed   int64
	logger logger.Logger
}

// NewGenerator creates a Generator. Without WithSeed or WithRand the source is
// seeded from crypto/rand.
func NewGenerator(opts ...Option) (*Generator, error) {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		seed, err := newSeed()
		if err != nil {
			return nil, err
		}
		g.seed = seed
		g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // stimulus order, not security
	}
	if g.logger == nil {
		g.logger = logger.Get().Named("sequence")
	}
	return g, nil
}

// Seed returns the seed the generator was built with, or 0 for an injected source.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Generate returns cfg.Trials trials with exactly round(N·p) targets.
func (g *Generator) Generate(ctx context.Context, cfg model.TaskConfig) ([]model.Trial, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n := cfg.Trials
	k := cfg.TargetCount()
	targets := make([]bool, n)

	// Rejection sampling: collisions are redrawn. This stays cheap for realistic
	// probabilities and degrades as k approaches n.
	for placed := 0; placed < k; {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generate sequence: %w", err)
		}
		i := g.rng.Intn(n)
		if !targets[i] {
			targets[i] = true
			placed++
		}
	}

	pool := cfg.NonTargetDigits()
	trials := make([]model.Trial, n)
	for i := range trials {
		if targets[i] {
			trials[i] = model.NewTrial(i, cfg.TargetDigit, true)
			continue
		}
		trials[i] = model.NewTrial(i, pool[g.rng.Intn(len(pool))], false)
	}

	g.logger.Debug(ctx, "sequence generated",
		logger.Int("trials", n),
		logger.Int("targets", k),
		logger.Any("seed", g.seed),
	)
	return trials, nil
}

// newSeed draws a seed from crypto/rand.
func newSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
