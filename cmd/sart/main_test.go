package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ndh707/sart/internal/config"
	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/engine"
	"github.com/ndh707/sart/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
}

// syncBuffer lets the engine loop and the test write output concurrently.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func fastConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.Trials = 4
	cfg.TargetProbability = 0.25
	cfg.StimulusDurationMS = 5
	cfg.ISIMS = 5
	cfg.FeedbackDurationMS = 5
	cfg.SimGoLatencyMS = 2
	cfg.Seed = 3
	return cfg
}

func TestParseFlags(t *testing.T) {
	convey.Convey("Given a loaded configuration", t, func() {
		cfg := config.New(context.Background())
		var errOut bytes.Buffer

		convey.Convey("When only some flags are passed", func() {
			opts, err := parseFlags([]string{"-simulate", "-trials", "30", "-format", "yaml"}, cfg, &errOut)

			convey.Convey("Then they override and the rest keep their loaded values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(opts.simulate, convey.ShouldBeTrue)
				convey.So(opts.format, convey.ShouldEqual, "yaml")
				convey.So(cfg.Trials, convey.ShouldEqual, 30)
				convey.So(cfg.TargetDigit, convey.ShouldEqual, "3")
				convey.So(cfg.ISIMS, convey.ShouldEqual, 900)
			})
		})

		convey.Convey("When the format is unknown", func() {
			_, err := parseFlags([]string{"-format", "xml"}, cfg, &errOut)

			convey.Convey("Then parsing fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errOut.String(), convey.ShouldContainSubstring, "xml")
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a fast task configuration", t, func() {
		cfg := fastConfig()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		convey.Convey("When a simulated participant does both runs", func() {
			out := &syncBuffer{}
			opts := cliOptions{simulate: true, format: "text"}
			err := run(ctx, cfg, opts, strings.NewReader(""), out, io.Discard)

			convey.Convey("Then both runs complete and the results are printed", func() {
				convey.So(err, convey.ShouldBeNil)
				s := out.String()
				convey.So(s, convey.ShouldContainSubstring, "Run 1 complete.")
				convey.So(s, convey.ShouldContainSubstring, "Run 2 complete.")
				convey.So(s, convey.ShouldContainSubstring, "Commission errors")
				convey.So(s, convey.ShouldContainSubstring, "Change in errors")
			})
		})

		convey.Convey("When input ends before the first run", func() {
			out := &syncBuffer{}
			err := run(ctx, cfg, cliOptions{format: "text"}, strings.NewReader(""), out, io.Discard)

			convey.Convey("Then it exits quietly without results", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "Press Enter to start run 1")
				convey.So(out.String(), convey.ShouldNotContainSubstring, "Commission errors")
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			cfg.TargetDigit = "x"
			err := run(ctx, cfg, cliOptions{simulate: true}, strings.NewReader(""), io.Discard, io.Discard)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestDisplay(t *testing.T) {
	convey.Convey("Given a terminal display", t, func() {
		var buf bytes.Buffer
		d := newDisplay(&buf)
		ctx := context.Background()

		d.PhaseChanged(ctx, model.PhaseChange{Phase: model.PhaseStimulus, TrialIndex: 0, Stimulus: "7"})
		d.ResponseRecorded(ctx, model.Attribution{Accepted: true})
		d.PhaseChanged(ctx, model.PhaseChange{Phase: model.PhaseISI, TrialIndex: 0})
		d.PhaseChanged(ctx, model.PhaseChange{Phase: model.PhaseStimulus, TrialIndex: 1, Stimulus: "3"})
		d.ResponseRecorded(ctx, model.Attribution{Accepted: true, Commission: true})
		d.PhaseChanged(ctx, model.PhaseChange{Phase: model.PhaseFeedback, TrialIndex: 1})
		d.PhaseChanged(ctx, model.PhaseChange{Phase: model.PhaseComplete, RunID: model.RunOne, TrialIndex: -1})

		convey.Convey("Then it marks correct presses and errors", func() {
			convey.So(buf.String(), convey.ShouldEqual, "\n[ 1]  7  +\n[ 2]  3  X\nRun 1 complete.\n")
		})
	})
}

func TestFormatSnapshot(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	idle := formatSnapshot(engine.Snapshot{Phase: model.PhaseIdle, TrialIndex: -1}, now)
	if !strings.Contains(idle, "phase: idle | remaining: -") {
		t.Errorf("idle readout = %q", idle)
	}
	armed := formatSnapshot(engine.Snapshot{Phase: model.PhaseISI, DeadlineAt: now.Add(120 * time.Millisecond)}, now)
	if !strings.Contains(armed, "phase: isi | remaining: 120ms") {
		t.Errorf("armed readout = %q", armed)
	}
}

func TestReadLines(t *testing.T) {
	ctx := context.Background()
	lines := readLines(ctx, strings.NewReader("\n\n"))
	for i := 0; i < 2; i++ {
		if err := waitLine(ctx, lines); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
	}
	if err := waitLine(ctx, lines); err != errInputClosed {
		t.Fatalf("after EOF got %v, want errInputClosed", err)
	}
}
