package engine_test

import (
	"context"
	"sync"
	"time"

	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/engine"
	"github.com/ndh707/sart/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

const (
	stimulusDuration = 250 * time.Millisecond
	isiDuration      = 900 * time.Millisecond
	feedbackDuration = 300 * time.Millisecond
)

// recorder captures everything an engine emits.
type recorder struct {
	mu           sync.Mutex
	changes      []model.PhaseChange
	attributions []model.Attribution
	runs         []model.Run
}

func (r *recorder) PhaseChanged(_ context.Context, c model.PhaseChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) ResponseRecorded(_ context.Context, a model.Attribution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attributions = append(r.attributions, a)
}

func (r *recorder) RunCompleted(_ context.Context, run model.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
}

func (r *recorder) phases() []model.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Phase, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Phase
	}
	return out
}

func (r *recorder) completed() []model.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Run(nil), r.runs...)
}

func (r *recorder) lastChange() model.PhaseChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes[len(r.changes)-1]
}

// trialsOf builds a sequence where "3" is the target.
func trialsOf(stimuli ...string) []model.Trial {
	out := make([]model.Trial, len(stimuli))
	for i, s := range stimuli {
		out[i] = model.NewTrial(i, s, s == "3")
	}
	return out
}

func specOf(id model.RunID, stimuli ...string) engine.RunSpec {
	cfg := model.DefaultTaskConfig()
	cfg.Trials = len(stimuli)
	cfg.StimulusDuration = stimulusDuration
	cfg.ISI = isiDuration
	cfg.FeedbackDuration = feedbackDuration
	return engine.RunSpec{ID: id, SessionID: "test-session", Config: cfg, Trials: trialsOf(stimuli...)}
}
