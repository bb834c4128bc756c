package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithSubsystem("valuation"),
			WithHistogramBuckets([]float64{10, 1, 10}),
			WithScanBuckets([]float64{100, 1000}),
			WithPrometheusRegistry(registry),
		)

		Convey("When recording predictions", func() {
			m.RecordPrediction("batch", 5, 2.5)
			m.RecordPrediction("single", 1, 0.2)

			Convey("Then the counter is split by mode", func() {
				So(testutil.ToFloat64(m.predictions.WithLabelValues("batch")), ShouldEqual, 5)
				So(testutil.ToFloat64(m.predictions.WithLabelValues("single")), ShouldEqual, 1)
			})
		})

		Convey("Then bucket options are sorted and deduplicated", func() {
			So(m.histogramBuckets, ShouldResemble, []float64{1, 10})
			So(m.scanBuckets, ShouldResemble, []float64{100, 1000})
		})

		Convey("When recording classifications and unknown categories", func() {
			m.RecordClassification("FAIR")
			m.RecordClassification("FAIR")
			m.RecordUnknownCategory("league")

			So(testutil.ToFloat64(m.classifications.WithLabelValues("FAIR")), ShouldEqual, 2)
			So(testutil.ToFloat64(m.unknownCategories.WithLabelValues("league")), ShouldEqual, 1)
		})

		Convey("When artifacts load", func() {
			m.RecordArtifactFailure("not_found")
			m.RecordArtifactLoad()

			So(testutil.ToFloat64(m.artifactReady), ShouldEqual, 1)
			So(testutil.ToFloat64(m.artifactFails.WithLabelValues("not_found")), ShouldEqual, 1)
		})

		Convey("When recording scan exclusions", func() {
			m.RecordScanExcluded("zero_actual", 0)
			m.RecordScanExcluded("below_minimum", 3)
			m.RecordScanFallback(4)

			So(testutil.ToFloat64(m.scanRowsExcluded.WithLabelValues("below_minimum")), ShouldEqual, 3)
			So(testutil.ToFloat64(m.scanFallbackRows), ShouldEqual, 4)
			So(testutil.ToFloat64(m.scanFallbackChunk), ShouldEqual, 1)
		})

		Convey("When refreshing process gauges", func() {
			m.UpdateSystemStats(2048, 12, 0.5)

			So(testutil.ToFloat64(m.memoryBytes), ShouldEqual, 2048)
			So(testutil.ToFloat64(m.goroutines), ShouldEqual, 12)
			So(testutil.ToFloat64(m.gcPause), ShouldEqual, 0.5)
		})

		Convey("Then every collector is registered under the namespace", func() {
			m.RecordHTTPRequest("predict", "POST", "200", 1)
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, f := range families {
				So(f.GetName(), ShouldStartWith, "test_valuation_")
			}
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		So(func() {
			RecordPrediction("single", 1, 0.1)
			RecordImputed(3)
			RecordClubFallback()
			RecordFeatureMismatch()
			RecordScan("top", 10, 12)
			RecordHTTPError("predict", "client_error")
		}, ShouldNotPanic)
		So(GetRegistry(), ShouldNotBeNil)
	})
}
