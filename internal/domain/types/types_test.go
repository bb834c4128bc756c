package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/scout/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntry(t *testing.T) {
	Convey("Given an Entry struct", t, func() {
		Convey("When creating an entry with zero values", func() {
			entry := types.Entry{}

			Convey("Then it should have default values", func() {
				So(entry.Rank, ShouldEqual, 0)
				So(entry.Name, ShouldEqual, "")
				So(entry.Age, ShouldBeNil)
			})
		})

		Convey("When encoding an entry", func() {
			age := 22.0
			raw, err := json.Marshal(types.Entry{Rank: 1, Name: "Pedri", Age: &age, Difference: 1.5e6, Classification: "UNDERVALUED"})
			So(err, ShouldBeNil)

			Convey("Then it uses snake_case keys and omits empty display fields", func() {
				s := string(raw)
				So(s, ShouldContainSubstring, `"difference_eur":1500000`)
				So(s, ShouldContainSubstring, `"age":22`)
				So(s, ShouldNotContainSubstring, `"club"`)
			})
		})
	})
}

func TestPrediction(t *testing.T) {
	Convey("Given a prediction without an actual value", t, func() {
		raw, err := json.Marshal(types.Prediction{PredictedValue: 100, Classification: "NO_COMPARISON"})
		So(err, ShouldBeNil)
		So(string(raw), ShouldNotContainSubstring, "actual_value_eur")
		So(string(raw), ShouldNotContainSubstring, "difference_eur")
	})
}

func TestFormatEUR(t *testing.T) {
	Convey("Given amounts of different magnitude", t, func() {
		So(types.FormatEUR(5_200_000), ShouldEqual, "€5.20M")
		So(types.FormatEUR(1_000_000), ShouldEqual, "€1.00M")
		So(types.FormatEUR(850_000), ShouldEqual, "€850,000")
		So(types.FormatEUR(999_999.6), ShouldEqual, "€1,000,000")
		So(types.FormatEUR(950), ShouldEqual, "€950")
		So(types.FormatEUR(0), ShouldEqual, "€0")
		So(types.FormatEUR(-12_500), ShouldEqual, "-€12,500")
	})

	Convey("Given signed differences", t, func() {
		So(types.FormatSignedEUR(2_000_000), ShouldEqual, "+€2.00M")
		So(types.FormatSignedEUR(-850_000), ShouldEqual, "-€850,000")
		So(types.FormatSignedEUR(0), ShouldEqual, "€0")
	})
}
