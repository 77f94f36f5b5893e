package engine

import (
	"github.com/ndh707/sart/pkg/logger"
)

// Option configures a Session or an Engine.
type Option func(*settings)

type settings struct {
	clock     Clock
	observer  Observer
	logger    logger.Logger
	queueSize int
}

func defaultSettings() settings {
	return settings{
		clock:     SystemClock(),
		observer:  NopObserver{},
		queueSize: defaultQueueSize,
	}
}

// WithClock sets the time source. Tests pass a manual clock.
func WithClock(c Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithObserver sets the receiver of phase changes, attributions and completed
// runs.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueueSize bounds the number of pending events. Only the Engine uses it.
func WithQueueSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.queueSize = n
		}
	}
}
