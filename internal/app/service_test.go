package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/ndh707/sart/internal/app"
	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/engine/enginetest"
	"github.com/ndh707/sart/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const step = 10 * time.Millisecond

// drive steps virtual time until the run in id ends. press decides whether
// to respond to the trial on screen.
func drive(ctx context.Context, svc *service.Service, clock *enginetest.ManualClock, id model.RunID, press func(trial int) bool) model.Run {
	pressed := map[int]bool{}
	for i := 0; i < 5000; i++ {
		snap := svc.Snapshot()
		if snap.Phase == model.PhaseStimulus && !pressed[snap.TrialIndex] && press(snap.TrialIndex) {
			pressed[snap.TrialIndex] = true
			a, err := svc.Respond(ctx, model.ResponseEvent{})
			So(err, ShouldBeNil)
			So(a.Accepted, ShouldBeTrue)
		}

		if run, ok := svc.Completed(id); ok {
			return run
		}

		clock.Advance(step)
		So(svc.Flush(ctx), ShouldBeNil)
	}
	So("run never completed", ShouldBeEmpty)
	return model.Run{}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then run operations report it", func() {
			So(errors.Is(svc.BeginRun(ctx, model.RunOne), service.ErrNotStarted), ShouldBeTrue)
			_, err := svc.Respond(ctx, model.ResponseEvent{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(svc.AbortRun(ctx), service.ErrNotStarted), ShouldBeTrue)
			So(svc.Snapshot().Phase, ShouldEqual, model.PhaseIdle)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("Then there are no results", func() {
			_, err := svc.Results()
			So(errors.Is(err, service.ErrResultsMissing), ShouldBeTrue)
		})

		Convey("Then waiting on a slot that never started fails", func() {
			_, err := svc.Wait(ctx, model.RunTwo)
			So(errors.Is(err, service.ErrRunNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given an invalid task configuration", t, func() {
		cfg := model.DefaultTaskConfig()
		cfg.TargetProbability = 2
		svc := service.New(service.WithTaskConfig(cfg))

		Convey("Then the service refuses to start", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, model.ErrInvalidConfiguration), ShouldBeTrue)
		})
	})
}

func TestService_TwoRuns(t *testing.T) {
	Convey("Given a started service on a manual clock", t, func() {
		ctx := context.Background()
		clock := enginetest.NewManualClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
		svc := service.New(service.WithClock(clock), service.WithSeed(5), service.WithQueueSize(32))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)
		So(svc.SessionID(), ShouldNotBeEmpty)

		Convey("When run one gets no responses and run two gets a press on every trial", func() {
			So(svc.BeginRun(ctx, model.RunOne), ShouldBeNil)
			So(errors.Is(svc.BeginRun(ctx, model.RunTwo), model.ErrProtocolViolation), ShouldBeTrue)
			first := drive(ctx, svc, clock, model.RunOne, func(int) bool { return false })

			So(svc.BeginRun(ctx, model.RunTwo), ShouldBeNil)
			second := drive(ctx, svc, clock, model.RunTwo, func(int) bool { return true })

			Convey("Then both runs land in their slots", func() {
				So(first.ID, ShouldEqual, model.RunOne)
				So(second.ID, ShouldEqual, model.RunTwo)
				So(first.SessionID, ShouldEqual, svc.SessionID())
				So(len(first.Trials), ShouldEqual, 10)
				So(len(second.Trials), ShouldEqual, 10)
			})

			Convey("Then the results carry both summaries and a comparison", func() {
				res, err := svc.Results()
				So(err, ShouldBeNil)
				So(res.Seed, ShouldEqual, 5)

				one := res.RunOne.Summary
				So(one.CommissionErrors, ShouldEqual, 0)
				So(one.OmissionErrors, ShouldEqual, 9)
				So(one.CorrectWithhold, ShouldEqual, 1)
				So(one.MeanReactionTime, ShouldEqual, time.Duration(0))

				two := res.RunTwo.Summary
				So(two.CommissionErrors, ShouldEqual, 1)
				So(two.OmissionErrors, ShouldEqual, 0)
				So(two.CorrectGo, ShouldEqual, 9)
				So(len(two.ReactionTimes), ShouldEqual, 9)

				cmp, ok := res.Comparison()
				So(ok, ShouldBeTrue)
				So(cmp.ErrorDelta(), ShouldEqual, -8)
			})
		})

		Convey("When a run is started while another is in progress", func() {
			So(svc.BeginRun(ctx, model.RunTwo), ShouldBeNil)
			stored := drive(ctx, svc, clock, model.RunTwo, func(int) bool { return true })

			So(svc.BeginRun(ctx, model.RunOne), ShouldBeNil)
			So(errors.Is(svc.BeginRun(ctx, model.RunOne), model.ErrProtocolViolation), ShouldBeTrue)
			So(errors.Is(svc.BeginRun(ctx, model.RunTwo), model.ErrProtocolViolation), ShouldBeTrue)

			Convey("Then the completed slot keeps its result", func() {
				run, ok := svc.Completed(model.RunTwo)
				So(ok, ShouldBeTrue)
				So(run, ShouldResemble, stored)
			})

			Convey("Then the active run can still be waited on", func() {
				wctx, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
				defer cancel()
				_, err := svc.Wait(wctx, model.RunOne)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)

				first := drive(ctx, svc, clock, model.RunOne, func(int) bool { return false })
				run, err := svc.Wait(ctx, model.RunOne)
				So(err, ShouldBeNil)
				So(run, ShouldResemble, first)
				So(run.Aborted, ShouldBeFalse)
			})
		})

		Convey("When a run is aborted", func() {
			So(svc.BeginRun(ctx, model.RunOne), ShouldBeNil)
			clock.Advance(step)
			So(svc.Flush(ctx), ShouldBeNil)
			So(svc.AbortRun(ctx), ShouldBeNil)

			Convey("Then waiting returns the aborted run", func() {
				run, err := svc.Wait(ctx, model.RunOne)
				So(err, ShouldBeNil)
				So(run.Aborted, ShouldBeTrue)
				So(svc.Snapshot().Phase, ShouldEqual, model.PhaseIdle)

				res, err := svc.Results()
				So(err, ShouldBeNil)
				_, ok := res.Comparison()
				So(ok, ShouldBeFalse)
			})
		})
	})
}
