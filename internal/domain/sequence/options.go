package sequence

import (
	"math/rand"

	"github.com/ndh707/sart/pkg/logger"
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed seeds the generator deterministically. A zero seed keeps the
// crypto-seeded default.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		if seed != 0 {
			g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // stimulus order, not security
			g.seed = seed
		}
	}
}

// WithRand injects a ready-made random source.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// WithLogger sets a custom logger for the generator.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}
