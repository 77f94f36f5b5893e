// Package config defines process configuration and how it is loaded.
package config

import (
	"context"
	"strings"
	"time"

	"github.com/ndh707/sart/internal/domain/model"
)

// Config contains process configuration. Keys are flat so every field can be
// set from the environment.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// QueueSize bounds the engine's pending events.
	QueueSize int `koanf:"queue_size"`

	// Seed fixes the sequence generator. Zero seeds from the OS.
	Seed int64 `koanf:"seed"`

	StimulusDigits     []string `koanf:"stimulus_digits"`
	TargetDigit        string   `koanf:"target_digit"`
	Trials             int      `koanf:"n_trials"`
	TargetProbability  float64  `koanf:"target_probability"`
	StimulusDurationMS int      `koanf:"stimulus_duration_ms"`
	ISIMS              int      `koanf:"isi_ms"`
	FeedbackDurationMS int      `koanf:"feedback_duration_ms"`

	// Simulated participant used by the CLI's -simulate mode.
	SimGoLatencyMS    int     `koanf:"sim_go_latency_ms"`
	SimOmissionRate   float64 `koanf:"sim_omission_rate"`
	SimCommissionRate float64 `koanf:"sim_commission_rate"`
}

// New returns a Config holding the defaults. The context is reserved for
// future sources and is currently unused.
func New(_ context.Context) *Config {
	task := model.DefaultTaskConfig()
	return &Config{
		LogLevel:           "info",
		QueueSize:          256,
		StimulusDigits:     task.StimulusDigits,
		TargetDigit:        task.TargetDigit,
		Trials:             task.Trials,
		TargetProbability:  task.TargetProbability,
		StimulusDurationMS: int(task.StimulusDuration / time.Millisecond),
		ISIMS:              int(task.ISI / time.Millisecond),
		FeedbackDurationMS: int(task.FeedbackDuration / time.Millisecond),
		SimGoLatencyMS:     350,
		SimOmissionRate:    0.05,
		SimCommissionRate:  0.5,
	}
}

// TaskConfig converts the flat settings into a validated task configuration.
func (c *Config) TaskConfig() (model.TaskConfig, error) {
	task := model.TaskConfig{
		StimulusDigits:    digits(c.StimulusDigits),
		TargetDigit:       strings.TrimSpace(c.TargetDigit),
		Trials:            c.Trials,
		TargetProbability: c.TargetProbability,
		StimulusDuration:  time.Duration(c.StimulusDurationMS) * time.Millisecond,
		ISI:               time.Duration(c.ISIMS) * time.Millisecond,
		FeedbackDuration:  time.Duration(c.FeedbackDurationMS) * time.Millisecond,
	}
	if err := task.Validate(); err != nil {
		return model.TaskConfig{}, err
	}
	return task, nil
}

// digits trims each entry of a comma-separated or YAML digit list and drops
// empty ones.
func digits(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}
