package classify

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	Convey("Given the tie-break cases", t, func() {
		So(Classify(100, ptr(100), 0).Label, ShouldEqual, Fair)
		So(Classify(110, ptr(100), 0.05).Label, ShouldEqual, Undervalued)
		So(Classify(90, ptr(100), 0.05).Label, ShouldEqual, Overvalued)
		So(Classify(100, nil, 0.05).Label, ShouldEqual, NoComparison)
		So(Classify(100, nil, 0.05).Difference, ShouldBeNil)
	})

	Convey("Given a prediction inside the band", t, func() {
		res := Classify(1_000_000, ptr(950_000), DefaultTolerance)

		So(res.Label, ShouldEqual, Fair)
		So(*res.Difference, ShouldEqual, 50_000)
		So(*res.Relative, ShouldAlmostEqual, 0.05, 1e-12)
		So(res.Tolerance, ShouldEqual, DefaultTolerance)
	})

	Convey("Given the band edge", t, func() {
		// relative = 10/100 exactly
		So(Classify(100, ptr(90), 0.1).Label, ShouldEqual, Fair)
		So(Classify(100, ptr(90), 0.0999).Label, ShouldEqual, Undervalued)
	})

	Convey("Given tiny predictions", t, func() {
		// denominator floors at 1
		res := Classify(0, ptr(0.5), 0.4)
		So(*res.Relative, ShouldEqual, 0.5)
		So(res.Label, ShouldEqual, Overvalued)
	})

	Convey("Given invalid tolerances", t, func() {
		So(Classify(100, ptr(100), -1).Label, ShouldEqual, Fair)
		So(Classify(100, ptr(100), math.NaN()).Tolerance, ShouldEqual, 0)
		So(Classify(101, ptr(100), -1).Label, ShouldEqual, Undervalued)
	})
}

func TestSummary(t *testing.T) {
	Convey("Given a prediction above the asking price", t, func() {
		s := Summary(12e6, 10e6)
		So(s.Verdict, ShouldEqual, Opportunity)
		So(s.Difference, ShouldEqual, 2e6)
		So(s.PercentOfActual, ShouldAlmostEqual, 20, 1e-9)
	})

	Convey("Given a prediction at or below the asking price", t, func() {
		So(Summary(10e6, 10e6).Verdict, ShouldEqual, Overpriced)
		s := Summary(8e6, 10e6)
		So(s.Verdict, ShouldEqual, Overpriced)
		So(s.AbsDifference, ShouldEqual, 2e6)
	})

	Convey("Given a zero asking price", t, func() {
		s := Summary(1e6, 0)
		So(s.PercentOfActual, ShouldEqual, 0)
		So(math.IsInf(s.PercentOfActual, 0), ShouldBeFalse)
	})
}
