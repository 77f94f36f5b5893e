package service

import (
	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/engine"
	"github.com/ndh707/sart/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTaskConfig sets the configuration used for every run.
func WithTaskConfig(cfg model.TaskConfig) Option {
	return func(s *Service) {
		s.task = cfg
	}
}

// WithSeed fixes the sequence generator. Zero keeps the random seed.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithQueueSize sets the maximum number of pending engine events.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithClock sets the engine's time source.
func WithClock(c engine.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithObserver adds a receiver of engine output, such as a display.
func WithObserver(o engine.Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
