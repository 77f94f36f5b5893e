package model

// Phase is the engine's current state.
type Phase int

// Engine phases.
const (
	PhaseIdle Phase = iota
	PhaseStimulus
	PhaseISI
	PhaseFeedback
	PhaseComplete
)

var phaseNames = [...]string{ //nolint:gochecknoglobals // lookup table
	PhaseIdle:     "idle",
	PhaseStimulus: "stimulus",
	PhaseISI:      "isi",
	PhaseFeedback: "feedback",
	PhaseComplete: "complete",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Active reports whether the phase belongs to a running trial sequence.
func (p Phase) Active() bool {
	return p == PhaseStimulus || p == PhaseISI || p == PhaseFeedback
}
