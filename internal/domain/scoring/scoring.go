// Package scoring reduces completed trial lists to task performance measures.
package scoring

import (
	"math"
	"time"

	"github.com/ndh707/sart/internal/domain/model"
)

// Summary holds the performance measures of one run.
type Summary struct {
	Trials           int             `json:"trials" yaml:"trials"`
	CommissionErrors int             `json:"commission_errors" yaml:"commission_errors"`
	OmissionErrors   int             `json:"omission_errors" yaml:"omission_errors"`
	CorrectGo        int             `json:"correct_go" yaml:"correct_go"`
	CorrectWithhold  int             `json:"correct_withhold" yaml:"correct_withhold"`
	MeanReactionTime time.Duration   `json:"mean_reaction_time" yaml:"mean_reaction_time"`
	ReactionTimeSD   time.Duration   `json:"reaction_time_sd" yaml:"reaction_time_sd"`
	ReactionTimes    []ReactionPoint `json:"reaction_times,omitempty" yaml:"reaction_times,omitempty"`
}

// TotalErrors is the sum of commission and omission errors.
func (s Summary) TotalErrors() int {
	return s.CommissionErrors + s.OmissionErrors
}

// ReactionPoint is one correct go response for the reaction-time chart.
type ReactionPoint struct {
	TrialIndex   int           `json:"trial_index" yaml:"trial_index"`
	ReactionTime time.Duration `json:"reaction_time" yaml:"reaction_time"`
}

// Classify returns the outcome of a trial from its target flag and response.
func Classify(t model.Trial) model.Outcome {
	switch {
	case t.IsTarget && t.Responded():
		return model.OutcomeCommission
	case t.IsTarget:
		return model.OutcomeCorrectWithhold
	case t.Responded():
		return model.OutcomeCorrectGo
	default:
		return model.OutcomeOmission
	}
}

// Calculate summarises trials. It never mutates its input; an empty list yields
// a zero Summary.
func Calculate(trials []model.Trial) Summary {
	s := Summary{Trials: len(trials)}
	var rts []time.Duration

	for _, t := range trials {
		switch Classify(t) {
		case model.OutcomeCommission:
			s.CommissionErrors++
		case model.OutcomeOmission:
			s.OmissionErrors++
		case model.OutcomeCorrectWithhold:
			s.CorrectWithhold++
		case model.OutcomeCorrectGo:
			s.CorrectGo++
			if t.ReactionTime != nil {
				rts = append(rts, *t.ReactionTime)
				s.ReactionTimes = append(s.ReactionTimes, ReactionPoint{TrialIndex: t.Index, ReactionTime: *t.ReactionTime})
			}
		}
	}

	s.MeanReactionTime, s.ReactionTimeSD = meanAndSD(rts)
	return s
}

// meanAndSD returns the arithmetic mean and population standard deviation.
func meanAndSD(rts []time.Duration) (time.Duration, time.Duration) {
	if len(rts) == 0 {
		return 0, 0
	}
	var sum float64
	for _, rt := range rts {
		sum += float64(rt)
	}
	mean := sum / float64(len(rts))

	var sq float64
	for _, rt := range rts {
		d := float64(rt) - mean
		sq += d * d
	}
	sd := math.Sqrt(sq / float64(len(rts)))
	return time.Duration(math.Round(mean)), time.Duration(math.Round(sd))
}

// Comparison sets two runs side by side.
type Comparison struct {
	RunOne Summary `json:"run_1" yaml:"run_1"`
	RunTwo Summary `json:"run_2" yaml:"run_2"`
}

// ErrorDelta is the change in total errors from run one to run two.
func (c Comparison) ErrorDelta() int {
	return c.RunTwo.TotalErrors() - c.RunOne.TotalErrors()
}

// ReactionTimeDelta is the change in mean reaction time from run one to run two.
func (c Comparison) ReactionTimeDelta() time.Duration {
	return c.RunTwo.MeanReactionTime - c.RunOne.MeanReactionTime
}
