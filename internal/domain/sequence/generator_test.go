package sequence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/domain/sequence"
	"github.com/ndh707/sart/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func countTargets(trials []model.Trial) int {
	n := 0
	for _, t := range trials {
		if t.IsTarget {
			n++
		}
	}
	return n
}

func TestGenerator_Generate(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		gen, err := sequence.NewGenerator(sequence.WithSeed(7))
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When generating from the default configuration", func() {
			cfg := model.DefaultTaskConfig()
			trials, err := gen.Generate(ctx, cfg)

			Convey("Then the sequence should satisfy the trial invariants", func() {
				So(err, ShouldBeNil)
				So(len(trials), ShouldEqual, cfg.Trials)
				So(countTargets(trials), ShouldEqual, cfg.TargetCount())
				for i, tr := range trials {
					So(tr.Index, ShouldEqual, i)
					So(tr.Response, ShouldEqual, model.ResponseNone)
					So(tr.ReactionTime, ShouldBeNil)
					if tr.IsTarget {
						So(tr.Stimulus, ShouldEqual, cfg.TargetDigit)
					} else {
						So(tr.Stimulus, ShouldNotEqual, cfg.TargetDigit)
						So(cfg.StimulusDigits, ShouldContain, tr.Stimulus)
					}
				}
			})
		})

		Convey("When generating across many configurations", func() {
			for _, n := range []int{1, 2, 9, 10, 50, 225} {
				for _, p := range []float64{0, 0.05, 0.11, 0.25, 0.5, 0.9, 1} {
					cfg := model.DefaultTaskConfig()
					cfg.Trials = n
					cfg.TargetProbability = p
					trials, err := gen.Generate(ctx, cfg)
					So(err, ShouldBeNil)
					So(len(trials), ShouldEqual, n)
					So(countTargets(trials), ShouldEqual, cfg.TargetCount())
				}
			}
		})

		Convey("When every trial must be a target and only the target symbol exists", func() {
			cfg := model.DefaultTaskConfig()
			cfg.StimulusDigits = []string{"3"}
			cfg.TargetProbability = 1
			trials, err := gen.Generate(ctx, cfg)

			Convey("Then generation should succeed with all targets", func() {
				So(err, ShouldBeNil)
				So(countTargets(trials), ShouldEqual, cfg.Trials)
			})
		})

		Convey("When go trials are needed but no non-target symbol exists", func() {
			cfg := model.DefaultTaskConfig()
			cfg.StimulusDigits = []string{"3"}
			_, err := gen.Generate(ctx, cfg)

			Convey("Then it should fail with a configuration error", func() {
				So(errors.Is(err, model.ErrInvalidConfiguration), ShouldBeTrue)
			})
		})

		Convey("When the trial count is not positive", func() {
			cfg := model.DefaultTaskConfig()
			cfg.Trials = 0
			_, err := gen.Generate(ctx, cfg)

			Convey("Then it should fail with a configuration error", func() {
				So(errors.Is(err, model.ErrInvalidConfiguration), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := gen.Generate(cctx, model.DefaultTaskConfig())

			Convey("Then it should return the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestGenerator_Deterministic(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a, err := sequence.NewGenerator(sequence.WithSeed(42))
		So(err, ShouldBeNil)
		b, err := sequence.NewGenerator(sequence.WithSeed(42))
		So(err, ShouldBeNil)

		Convey("Then they should produce identical sequences", func() {
			cfg := model.DefaultTaskConfig()
			cfg.Trials = 40
			cfg.TargetProbability = 0.2
			x, err := a.Generate(context.Background(), cfg)
			So(err, ShouldBeNil)
			y, err := b.Generate(context.Background(), cfg)
			So(err, ShouldBeNil)
			So(x, ShouldResemble, y)
			So(a.Seed(), ShouldEqual, 42)
		})
	})

	Convey("Given a generator without a seed", t, func() {
		g, err := sequence.NewGenerator()

		Convey("Then it should seed itself", func() {
			So(err, ShouldBeNil)
			So(g, ShouldNotBeNil)
		})
	})
}
