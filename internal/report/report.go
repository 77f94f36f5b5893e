// Package report renders session results for the terminal or for files.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	service "github.com/ndh707/sart/internal/app"
	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/domain/scoring"
)

// Output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned for a format other than text or yaml.
var ErrUnknownFormat = errors.New("report: unknown format")

// Write renders r in the named format.
func Write(w io.Writer, format string, r service.Results) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return WriteText(w, r)
	case FormatYAML, "yml":
		return WriteYAML(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteText prints both runs side by side, then the per-trial tables.
func WriteText(w io.Writer, r service.Results) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Session\t%s\n", r.SessionID)
	fmt.Fprintf(tw, "Seed\t%d\n\n", r.Seed)

	one, two := summaryOf(r.RunOne), summaryOf(r.RunTwo)
	fmt.Fprintf(tw, "\tRun 1\tRun 2\n")
	fmt.Fprintf(tw, "Commission errors\t%s\t%s\n", count(one, func(s scoring.Summary) int { return s.CommissionErrors }), count(two, func(s scoring.Summary) int { return s.CommissionErrors }))
	fmt.Fprintf(tw, "Omission errors\t%s\t%s\n", count(one, func(s scoring.Summary) int { return s.OmissionErrors }), count(two, func(s scoring.Summary) int { return s.OmissionErrors }))
	fmt.Fprintf(tw, "Total errors\t%s\t%s\n", count(one, scoring.Summary.TotalErrors), count(two, scoring.Summary.TotalErrors))
	fmt.Fprintf(tw, "Mean RT (ms)\t%s\t%s\n", meanRT(one), meanRT(two))

	if cmp, ok := r.Comparison(); ok {
		fmt.Fprintf(tw, "\nChange in errors\t%+d\n", cmp.ErrorDelta())
		fmt.Fprintf(tw, "Change in mean RT (ms)\t%+.0f\n", ms(cmp.ReactionTimeDelta()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, rr := range []*service.RunResult{r.RunOne, r.RunTwo} {
		if rr == nil {
			continue
		}
		if err := writeTrials(w, rr.Run); err != nil {
			return err
		}
	}
	return nil
}

func writeTrials(w io.Writer, run model.Run) error {
	title := fmt.Sprintf("\nRun %d", run.ID)
	if run.Aborted {
		title += " (aborted)"
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tStimulus\tTarget\tResponse\tRT (ms)\tOutcome")
	for _, t := range run.Trials {
		rt := "-"
		if t.ReactionTime != nil {
			rt = fmt.Sprintf("%.0f", ms(*t.ReactionTime))
		}
		target := ""
		if t.IsTarget {
			target = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", t.Index+1, t.Stimulus, target, t.Response, rt, t.Outcome)
	}
	return tw.Flush()
}

// WriteYAML emits a document with durations in milliseconds.
func WriteYAML(w io.Writer, r service.Results) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(r)); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return enc.Close()
}

func summaryOf(rr *service.RunResult) *scoring.Summary {
	if rr == nil {
		return nil
	}
	return &rr.Summary
}

func count(s *scoring.Summary, f func(scoring.Summary) int) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%d", f(*s))
}

func meanRT(s *scoring.Summary) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", ms(s.MeanReactionTime))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
