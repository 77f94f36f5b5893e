package scoring_test

import (
	"testing"
	"time"

	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func press(index int, stimulus string, target bool, rt time.Duration) model.Trial {
	t := model.NewTrial(index, stimulus, target)
	t.RecordPress(rt)
	return t
}

func TestClassify(t *testing.T) {
	Convey("Given the four response combinations", t, func() {
		So(scoring.Classify(press(0, "3", true, 200*time.Millisecond)), ShouldEqual, model.OutcomeCommission)
		So(scoring.Classify(model.NewTrial(0, "3", true)), ShouldEqual, model.OutcomeCorrectWithhold)
		So(scoring.Classify(press(0, "5", false, 200*time.Millisecond)), ShouldEqual, model.OutcomeCorrectGo)
		So(scoring.Classify(model.NewTrial(0, "5", false)), ShouldEqual, model.OutcomeOmission)
	})
}

func TestCalculate(t *testing.T) {
	Convey("Given an empty trial list", t, func() {
		s := scoring.Calculate(nil)

		Convey("Then every measure should be zero", func() {
			So(s.Trials, ShouldEqual, 0)
			So(s.CommissionErrors, ShouldEqual, 0)
			So(s.OmissionErrors, ShouldEqual, 0)
			So(s.MeanReactionTime, ShouldEqual, time.Duration(0))
			So(s.ReactionTimes, ShouldBeEmpty)
		})
	})

	Convey("Given a mixed run", t, func() {
		trials := []model.Trial{
			press(0, "1", false, 300*time.Millisecond),
			model.NewTrial(1, "2", false),
			press(2, "3", true, 250*time.Millisecond),
			press(3, "4", false, 500*time.Millisecond),
			model.NewTrial(4, "3", true),
			press(5, "6", false, 400*time.Millisecond),
		}

		Convey("When calculating the summary", func() {
			s := scoring.Calculate(trials)

			Convey("Then the counts should match the outcomes", func() {
				So(s.Trials, ShouldEqual, 6)
				So(s.CommissionErrors, ShouldEqual, 1)
				So(s.OmissionErrors, ShouldEqual, 1)
				So(s.CorrectGo, ShouldEqual, 3)
				So(s.CorrectWithhold, ShouldEqual, 1)
				So(s.TotalErrors(), ShouldEqual, 2)
				So(s.CommissionErrors+s.OmissionErrors+s.CorrectGo+s.CorrectWithhold, ShouldEqual, len(trials))
			})

			Convey("And the mean should only use correct go responses", func() {
				So(s.MeanReactionTime, ShouldEqual, 400*time.Millisecond)
				// population SD of 300, 500, 400 ms
				So(float64(s.ReactionTimeSD), ShouldAlmostEqual, 81649658.0, 1000.0)
				So(s.ReactionTimes, ShouldResemble, []scoring.ReactionPoint{
					{TrialIndex: 0, ReactionTime: 300 * time.Millisecond},
					{TrialIndex: 3, ReactionTime: 500 * time.Millisecond},
					{TrialIndex: 5, ReactionTime: 400 * time.Millisecond},
				})
			})

			Convey("And calculating twice should be idempotent", func() {
				again := scoring.Calculate(trials)
				So(again, ShouldResemble, s)
				So(trials[1].Response, ShouldEqual, model.ResponseNone)
			})
		})
	})

	Convey("Given a run with no responses", t, func() {
		trials := []model.Trial{
			model.NewTrial(0, "1", false),
			model.NewTrial(1, "3", true),
			model.NewTrial(2, "7", false),
		}
		s := scoring.Calculate(trials)

		Convey("Then every go trial should be an omission and the mean zero", func() {
			So(s.OmissionErrors, ShouldEqual, 2)
			So(s.CommissionErrors, ShouldEqual, 0)
			So(s.MeanReactionTime, ShouldEqual, time.Duration(0))
		})
	})
}

func TestComparison(t *testing.T) {
	c := scoring.Comparison{
		RunOne: scoring.Summary{CommissionErrors: 2, OmissionErrors: 1, MeanReactionTime: 400 * time.Millisecond},
		RunTwo: scoring.Summary{CommissionErrors: 1, OmissionErrors: 0, MeanReactionTime: 350 * time.Millisecond},
	}
	if c.ErrorDelta() != -2 {
		t.Errorf("ErrorDelta = %d, want -2", c.ErrorDelta())
	}
	if c.ReactionTimeDelta() != -50*time.Millisecond {
		t.Errorf("ReactionTimeDelta = %s, want -50ms", c.ReactionTimeDelta())
	}
}
