// Package model contains domain models passed between layers.
package model

import "time"

// ResponseEvent is a single "participant responded now" signal. It carries no
// payload beyond its timestamp; a zero At means "use the engine clock".
type ResponseEvent struct {
	At time.Time
}

// PhaseChange is emitted on every engine transition so presentation can react.
type PhaseChange struct {
	From       Phase
	Phase      Phase
	RunID      RunID
	TrialIndex int        // trial the phase concerns; -1 when idle or complete
	Stimulus   string     // symbol to display; empty when the display is blank
	DeadlineAt *time.Time // nil when no deadline is armed
}

// Window names the attribution window a response landed in.
type Window string

// Attribution windows.
const (
	WindowStimulus Window = "stimulus"
	WindowISI      Window = "isi"
)

// DiscardReason explains why a response was not attributed to any trial.
type DiscardReason string

// Discard reasons.
const (
	DiscardFeedback         DiscardReason = "feedback"
	DiscardAlreadyResponded DiscardReason = "already_responded"
	DiscardNoCandidate      DiscardReason = "no_candidate"
)

// Attribution is the arbiter's verdict on one response event.
type Attribution struct {
	Accepted     bool
	TrialIndex   int
	Window       Window
	ReactionTime time.Duration
	Commission   bool          // the response landed on a target trial
	Reason       DiscardReason // set when Accepted is false
}
