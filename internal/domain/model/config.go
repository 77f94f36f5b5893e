package model

import (
	"math"
	"slices"
	"time"
)

// TaskConfig is the validated, immutable configuration of one run.
type TaskConfig struct {
	StimulusDigits    []string
	TargetDigit       string
	Trials            int
	TargetProbability float64
	StimulusDuration  time.Duration
	ISI               time.Duration
	FeedbackDuration  time.Duration
}

// DefaultTaskConfig mirrors the classic ten-trial demonstration setup.
func DefaultTaskConfig() TaskConfig {
	return TaskConfig{
		StimulusDigits:    []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"},
		TargetDigit:       "3",
		Trials:            10,
		TargetProbability: 0.11,
		StimulusDuration:  250 * time.Millisecond,
		ISI:               900 * time.Millisecond,
		FeedbackDuration:  300 * time.Millisecond,
	}
}

// TargetCount returns round(N·p), rounding halves away from zero.
func (c TaskConfig) TargetCount() int {
	return int(math.Round(float64(c.Trials) * c.TargetProbability))
}

// NonTargetDigits returns the digit set without the target symbol.
func (c TaskConfig) NonTargetDigits() []string {
	out := make([]string, 0, len(c.StimulusDigits))
	for _, d := range c.StimulusDigits {
		if d != c.TargetDigit {
			out = append(out, d)
		}
	}
	return out
}

// Validate checks every field and returns a *ConfigurationError for the first
// problem found.
func (c TaskConfig) Validate() error {
	switch {
	case len(c.StimulusDigits) == 0:
		return configErr("stimulus_digits", "must not be empty")
	case c.TargetDigit == "":
		return configErr("target_digit", "must not be empty")
	case !slices.Contains(c.StimulusDigits, c.TargetDigit):
		return configErr("target_digit", "%q is not in the stimulus digit set", c.TargetDigit)
	case c.Trials <= 0:
		return configErr("n_trials", "must be positive, got %d", c.Trials)
	case math.IsNaN(c.TargetProbability) || c.TargetProbability < 0 || c.TargetProbability > 1:
		return configErr("target_probability", "must be within [0,1], got %v", c.TargetProbability)
	case c.StimulusDuration <= 0:
		return configErr("stimulus_duration_ms", "must be positive, got %s", c.StimulusDuration)
	case c.ISI < 0:
		return configErr("isi_ms", "must not be negative, got %s", c.ISI)
	case c.FeedbackDuration <= 0:
		return configErr("feedback_duration_ms", "must be positive, got %s", c.FeedbackDuration)
	}
	if c.TargetCount() < c.Trials && len(c.NonTargetDigits()) == 0 {
		return configErr("stimulus_digits", "no non-target symbol available for %d go trials", c.Trials-c.TargetCount())
	}
	return nil
}
