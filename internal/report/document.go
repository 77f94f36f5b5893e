package report

import (
	service "github.com/ndh707/sart/internal/app"
	"github.com/ndh707/sart/internal/domain/model"
)

// Document is the serialised form of a session's results.
type Document struct {
	SessionID  string         `yaml:"session_id"`
	Seed       int64          `yaml:"seed"`
	Runs       []RunDocument  `yaml:"runs"`
	Comparison *ComparisonDoc `yaml:"comparison,omitempty"`
}

// RunDocument is one run and its summary.
type RunDocument struct {
	ID      int             `yaml:"id"`
	Aborted bool            `yaml:"aborted,omitempty"`
	Summary SummaryDocument `yaml:"summary"`
	Trials  []TrialDocument `yaml:"trials"`
}

// SummaryDocument holds a run's metrics.
type SummaryDocument struct {
	Trials           int             `yaml:"trials"`
	CommissionErrors int             `yaml:"commission_errors"`
	OmissionErrors   int             `yaml:"omission_errors"`
	CorrectGo        int             `yaml:"correct_go"`
	CorrectWithhold  int             `yaml:"correct_withhold"`
	MeanRTMs         float64         `yaml:"mean_rt_ms"`
	RTSDMs           float64         `yaml:"rt_sd_ms"`
	ReactionTimes    []PointDocument `yaml:"reaction_times"`
}

// PointDocument places one correct go reaction time on its trial.
type PointDocument struct {
	Trial int     `yaml:"trial"`
	RTMs  float64 `yaml:"rt_ms"`
}

// TrialDocument is one trial row.
type TrialDocument struct {
	Index    int      `yaml:"index"`
	Stimulus string   `yaml:"stimulus"`
	Target   bool     `yaml:"target"`
	Response string   `yaml:"response"`
	RTMs     *float64 `yaml:"rt_ms,omitempty"`
	Outcome  string   `yaml:"outcome"`
}

// ComparisonDoc compares run two against run one.
type ComparisonDoc struct {
	ErrorDelta    int     `yaml:"error_delta"`
	MeanRTDeltaMs float64 `yaml:"mean_rt_delta_ms"`
}

func newDocument(r service.Results) Document {
	doc := Document{SessionID: r.SessionID, Seed: r.Seed}
	for _, rr := range []*service.RunResult{r.RunOne, r.RunTwo} {
		if rr != nil {
			doc.Runs = append(doc.Runs, newRunDocument(rr))
		}
	}
	if cmp, ok := r.Comparison(); ok {
		doc.Comparison = &ComparisonDoc{
			ErrorDelta:    cmp.ErrorDelta(),
			MeanRTDeltaMs: ms(cmp.ReactionTimeDelta()),
		}
	}
	return doc
}

func newRunDocument(rr *service.RunResult) RunDocument {
	s := rr.Summary
	rd := RunDocument{
		ID:      int(rr.Run.ID),
		Aborted: rr.Run.Aborted,
		Summary: SummaryDocument{
			Trials:           s.Trials,
			CommissionErrors: s.CommissionErrors,
			OmissionErrors:   s.OmissionErrors,
			CorrectGo:        s.CorrectGo,
			CorrectWithhold:  s.CorrectWithhold,
			MeanRTMs:         ms(s.MeanReactionTime),
			RTSDMs:           ms(s.ReactionTimeSD),
			ReactionTimes:    make([]PointDocument, 0, len(s.ReactionTimes)),
		},
		Trials: make([]TrialDocument, 0, len(rr.Run.Trials)),
	}
	for _, p := range s.ReactionTimes {
		rd.Summary.ReactionTimes = append(rd.Summary.ReactionTimes, PointDocument{Trial: p.TrialIndex, RTMs: ms(p.ReactionTime)})
	}
	for _, t := range rr.Run.Trials {
		rd.Trials = append(rd.Trials, newTrialDocument(t))
	}
	return rd
}

func newTrialDocument(t model.Trial) TrialDocument {
	td := TrialDocument{
		Index:    t.Index,
		Stimulus: t.Stimulus,
		Target:   t.IsTarget,
		Response: string(t.Response),
		Outcome:  string(t.Outcome),
	}
	if t.ReactionTime != nil {
		v := ms(*t.ReactionTime)
		td.RTMs = &v
	}
	return td
}
