package engine

import (
	"time"

	"github.com/ndh707/sart/internal/domain/model"
)

// attributable is a trial that may still take a response.
type attributable interface {
	// tryAttribute records a press at the given instant. ok is false when the
	// candidate refuses; reason then says why.
	tryAttribute(at time.Time) (a model.Attribution, ok bool)
}

// slot exposes one trial to the arbiter for the length of one window.
type slot struct {
	trial  *model.Trial
	window model.Window
}

func (s *slot) tryAttribute(at time.Time) (model.Attribution, bool) {
	if s.trial.Responded() {
		return model.Attribution{TrialIndex: s.trial.Index, Reason: model.DiscardAlreadyResponded}, false
	}
	s.trial.RecordPress(at.Sub(s.trial.OnsetAt))
	return model.Attribution{
		Accepted:     true,
		TrialIndex:   s.trial.Index,
		Window:       s.window,
		ReactionTime: *s.trial.ReactionTime,
		Commission:   s.trial.IsTarget,
	}, true
}

// ring holds the two live candidates: the trial on screen and the trial whose
// stimulus just disappeared. At most one is open at a time in practice, but
// the arbiter does not rely on that.
type ring struct {
	current  *slot // open during Stimulus
	previous *slot // open during ISI
}

// show opens the current window for t and closes the look-back window.
func (r *ring) show(t *model.Trial) {
	r.current = &slot{trial: t, window: model.WindowStimulus}
	r.previous = nil
}

// hide moves the trial on screen into the look-back window.
func (r *ring) hide() {
	if r.current != nil {
		r.previous = &slot{trial: r.current.trial, window: model.WindowISI}
	}
	r.current = nil
}

// lookBack returns the trial in the look-back window, if any.
func (r *ring) lookBack() *model.Trial {
	if r.previous == nil {
		return nil
	}
	return r.previous.trial
}

func (r *ring) clear() {
	r.current, r.previous = nil, nil
}

func (r *ring) candidates() []attributable {
	out := make([]attributable, 0, 2)
	if r.current != nil {
		out = append(out, r.current)
	}
	if r.previous != nil {
		out = append(out, r.previous)
	}
	return out
}

// arbitrate resolves one response against the current phase and the ring:
// current first, then previous, stopping at the first success.
func arbitrate(phase model.Phase, r *ring, at time.Time) model.Attribution {
	if phase == model.PhaseFeedback {
		return model.Attribution{TrialIndex: -1, Reason: model.DiscardFeedback}
	}

	verdict := model.Attribution{TrialIndex: -1, Reason: model.DiscardNoCandidate}
	for _, c := range r.candidates() {
		a, ok := c.tryAttribute(at)
		if ok {
			return a
		}
		verdict = a
	}
	return verdict
}
