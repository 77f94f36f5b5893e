package model

import "time"

// Response is the participant's binary answer for one trial.
type Response string

// Responses.
const (
	ResponseNone  Response = "none"
	ResponsePress Response = "press"
)

// Outcome classifies a finalized trial.
type Outcome string

// Outcomes.
const (
	OutcomePending         Outcome = ""
	OutcomeCommission      Outcome = "commission"       // pressed on a target
	OutcomeOmission        Outcome = "omission"         // withheld on a go trial
	OutcomeCorrectGo       Outcome = "correct_go"       // pressed on a go trial
	OutcomeCorrectWithhold Outcome = "correct_withhold" // withheld on a target
)

// IsError reports whether the outcome counts as an error.
func (o Outcome) IsError() bool {
	return o == OutcomeCommission || o == OutcomeOmission
}

// Trial is one position in a run's sequence.
type Trial struct {
	Index        int            `json:"index" yaml:"index"`
	Stimulus     string         `json:"stimulus" yaml:"stimulus"`
	IsTarget     bool           `json:"is_target" yaml:"is_target"`
	Response     Response       `json:"response" yaml:"response"`
	ReactionTime *time.Duration `json:"reaction_time,omitempty" yaml:"reaction_time,omitempty"`
	OnsetAt      time.Time      `json:"onset_at" yaml:"onset_at"`
	Outcome      Outcome        `json:"outcome,omitempty" yaml:"outcome,omitempty"`
}

// Responded reports whether a press has been recorded.
func (t *Trial) Responded() bool {
	return t.Response == ResponsePress
}

// RecordPress stores a press with its reaction time. It returns false and
// leaves the trial untouched if a press was already recorded. Negative reaction
// times, which only arise from a clock that stepped backwards, are clamped to 0.
func (t *Trial) RecordPress(rt time.Duration) bool {
	if t.Responded() {
		return false
	}
	if rt < 0 {
		rt = 0
	}
	t.Response = ResponsePress
	t.ReactionTime = &rt
	return true
}

// RunID routes a completed run to its downstream slot.
type RunID int

// Run slots.
const (
	RunOne RunID = 1
	RunTwo RunID = 2
)

// Valid reports whether id names a known slot.
func (id RunID) Valid() bool {
	return id == RunOne || id == RunTwo
}

// Run is the ordered trial list of one pass through the task.
type Run struct {
	ID        RunID     `json:"id" yaml:"id"`
	SessionID string    `json:"session_id" yaml:"session_id"`
	Trials    []Trial   `json:"trials" yaml:"trials"`
	Aborted   bool      `json:"aborted" yaml:"aborted"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	EndedAt   time.Time `json:"ended_at" yaml:"ended_at"`
}

// NewTrial returns a trial with no response recorded.
func NewTrial(index int, stimulus string, isTarget bool) Trial {
	return Trial{
		Index:    index,
		Stimulus: stimulus,
		IsTarget: isTarget,
		Response: ResponseNone,
	}
}

// CloneTrials deep-copies trials so reaction-time pointers are not shared.
func CloneTrials(trials []Trial) []Trial {
	out := make([]Trial, len(trials))
	for i, t := range trials {
		out[i] = t
		if t.ReactionTime != nil {
			rt := *t.ReactionTime
			out[i].ReactionTime = &rt
		}
	}
	return out
}
