package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ndh707/sart/internal/domain/model"
)

// Snapshot is a read-only view of the engine for debug readouts.
type Snapshot struct {
	Phase      model.Phase
	RunID      model.RunID
	TrialIndex int
	Stimulus   string
	DeadlineAt time.Time // zero when nothing is armed
}

// Remaining returns how long until the armed deadline fires, as of now.
func (s Snapshot) Remaining(now time.Time) time.Duration {
	if s.DeadlineAt.IsZero() || now.After(s.DeadlineAt) {
		return 0
	}
	return s.DeadlineAt.Sub(now)
}

// snapshotter keeps the latest Snapshot from the phase stream.
type snapshotter struct {
	NopObserver
	current atomic.Pointer[Snapshot]
}

func newSnapshotter() *snapshotter {
	s := &snapshotter{}
	s.current.Store(&Snapshot{Phase: model.PhaseIdle, TrialIndex: -1})
	return s
}

func (s *snapshotter) PhaseChanged(_ context.Context, c model.PhaseChange) {
	snap := &Snapshot{
		Phase:      c.Phase,
		RunID:      c.RunID,
		TrialIndex: c.TrialIndex,
		Stimulus:   c.Stimulus,
	}
	if c.DeadlineAt != nil {
		snap.DeadlineAt = *c.DeadlineAt
	}
	s.current.Store(snap)
}

func (s *snapshotter) load() Snapshot {
	return *s.current.Load()
}
