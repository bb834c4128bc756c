package features

import (
	"errors"
	"sync"
	"testing"

	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/schema"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingObserver struct {
	mu       sync.Mutex
	unknown  []UnknownCategory
	imputed  int
	fallback int
}

func (o *recordingObserver) UnknownCategory(u UnknownCategory) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unknown = append(o.unknown, u)
}

func (o *recordingObserver) Imputed(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.imputed += n
}

func (o *recordingObserver) ClubFallback() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallback++
}

func testSchema() *schema.Schema {
	layout := schema.Layout{
		Numeric:     []string{"overall", "potential_gap", "age"},
		Categorical: []string{"age_category", "preferred_foot", "league"},
		Defaults: schema.Defaults{
			Numeric:     map[string]float64{"overall": 66, "potential_gap": 3, "age": 25},
			Categorical: map[string]string{"league": "Serie A"},
		},
	}
	enc, err := schema.NewEncoder(layout.Categorical, map[string][]string{
		"age_category":   {"Prime", "Veteran", "Young"},
		"preferred_foot": {"Left", "Right"},
		"league":         {"La Liga", "Serie A"},
	})
	if err != nil {
		panic(err)
	}
	s, err := schema.New(layout, enc, &schema.ClubEncoding{
		Means:      map[string]float64{"Roma": 2e6, "Sevilla": 8e6},
		GlobalMean: 4e6,
	})
	if err != nil {
		panic(err)
	}
	return s
}

func TestAlign(t *testing.T) {
	Convey("Given an aligner", t, func() {
		obs := &recordingObserver{}
		a, err := NewAligner(testSchema(), WithObserver(obs))
		So(err, ShouldBeNil)

		Convey("When a complete record is aligned", func() {
			rec := player.Record{
				Overall:       player.Float(80),
				Potential:     player.Float(84),
				Age:           player.Float(21),
				PreferredFoot: player.Text("Left"),
				League:        player.Text("La Liga"),
				Club:          player.Text("Sevilla"),
			}
			vec, prov, err := a.Align(rec)
			So(err, ShouldBeNil)

			Convey("Then the vector follows the schema column order", func() {
				So(vec, ShouldResemble, Vector{
					80, 4, 21, // numeric
					8e6,     // club
					0, 0, 1, // age_category Young
					1, 0, // Left
					1, 0, // La Liga
				})
				So(len(vec), ShouldEqual, a.Schema().Width())
			})

			Convey("Then the provenance explains each value", func() {
				So(prov.Supplied, ShouldContain, "overall")
				So(prov.Derived, ShouldContain, "potential_gap")
				So(prov.Derived, ShouldContain, "age_category")
				So(prov.Imputed, ShouldBeEmpty)
				So(prov.ClubFallback, ShouldBeFalse)
			})
		})

		Convey("When an empty record is aligned", func() {
			vec, prov, err := a.Align(player.Record{})
			So(err, ShouldBeNil)

			Convey("Then every input comes from the default table", func() {
				So(vec, ShouldResemble, Vector{
					66, 3, 25,
					4e6,
					1, 0, 0, // Prime fallback
					0, 1, // Right fallback
					0, 1, // Serie A mode
				})
				So(prov.Imputed, ShouldHaveLength, 6)
				So(prov.ClubFallback, ShouldBeTrue)
				So(obs.fallback, ShouldEqual, 1)
				So(obs.imputed, ShouldEqual, 6)
			})
		})

		Convey("When a category was never seen in training", func() {
			vec, prov, err := a.Align(player.Record{League: player.Text("MLS"), Club: player.Text("LA Galaxy")})
			So(err, ShouldBeNil)

			Convey("Then its block is all zeros and a warning is recorded", func() {
				So(vec[len(vec)-2:], ShouldResemble, Vector{0, 0})
				So(prov.Unknown, ShouldResemble, []string{"league"})
				So(obs.unknown, ShouldResemble, []UnknownCategory{{Column: "league", Value: "MLS"}})
			})

			Convey("Then the unknown club uses the global mean", func() {
				So(vec[3], ShouldEqual, 4e6)
				So(prov.ClubFallback, ShouldBeTrue)
			})
		})

		Convey("When a supplied value is invalid", func() {
			_, _, err := a.Align(player.Record{Age: player.Float(70)})
			So(errors.Is(err, player.ErrInvalidRecord), ShouldBeTrue)
		})

		Convey("When the same record is aligned twice", func() {
			rec := player.Record{Overall: player.Float(71), League: player.Text("Serie A")}
			v1, _, _ := a.Align(rec)
			v2, _, _ := a.Align(rec)
			So(v1, ShouldResemble, v2)
		})

		Convey("When absent fields are replaced by their defaults", func() {
			rec := player.Record{Overall: player.Float(75), Age: player.Float(29)}
			before, _, err := a.Align(rec)
			So(err, ShouldBeNil)

			filled, _ := player.Derive(rec)
			filled.PotentialGap = player.Float(3)
			filled.PreferredFoot = player.Text("Right")
			filled.League = player.Text("Serie A")
			after, prov, err := a.Align(filled)
			So(err, ShouldBeNil)

			Convey("Then the vector is unchanged", func() {
				So(after, ShouldResemble, before)
				So(prov.Imputed, ShouldBeEmpty)
			})
		})
	})
}

func TestAlignBatch(t *testing.T) {
	Convey("Given several records", t, func() {
		a, err := NewAligner(testSchema())
		So(err, ShouldBeNil)
		recs := []player.Record{
			{Overall: player.Float(60)},
			{Age: player.Float(34), Club: player.Text("Roma")},
			{League: player.Text("Eredivisie")},
		}

		Convey("Then batch rows equal single alignments", func() {
			vecs, provs, err := a.AlignBatch(recs)
			So(err, ShouldBeNil)
			So(vecs, ShouldHaveLength, 3)
			for i, r := range recs {
				v, p, err := a.Align(r)
				So(err, ShouldBeNil)
				So(vecs[i], ShouldResemble, v)
				So(provs[i], ShouldResemble, p)
			}
		})

		Convey("Then an invalid row is located", func() {
			recs = append(recs, player.Record{Overall: player.Float(200)})
			_, _, err := a.AlignBatch(recs)
			var rowErr *RowError
			So(errors.As(err, &rowErr), ShouldBeTrue)
			So(rowErr.Index, ShouldEqual, 3)
			So(errors.Is(err, player.ErrInvalidRecord), ShouldBeTrue)
		})
	})
}

func TestAlignBatchDeferred(t *testing.T) {
	Convey("Given an observed aligner", t, func() {
		obs := &recordingObserver{}
		a, err := NewAligner(testSchema(), WithObserver(obs))
		So(err, ShouldBeNil)
		recs := []player.Record{
			{League: player.Text("MLS")},
			{Club: player.Text("Roma")},
		}

		Convey("When the batch aligns but its report is dropped", func() {
			_, _, _, err := a.AlignBatchDeferred(recs)
			So(err, ShouldBeNil)

			Convey("Then nothing is observed", func() {
				So(obs.unknown, ShouldBeEmpty)
				So(obs.fallback, ShouldEqual, 0)
				So(obs.imputed, ShouldEqual, 0)
			})
		})

		Convey("When the report is called", func() {
			_, _, report, err := a.AlignBatchDeferred(recs)
			So(err, ShouldBeNil)
			report()

			Convey("Then each row is observed once", func() {
				So(obs.unknown, ShouldResemble, []UnknownCategory{{Column: "league", Value: "MLS"}})
				So(obs.fallback, ShouldEqual, 1)
			})
		})

		Convey("When a later row is invalid", func() {
			_, _, err := a.AlignBatch(append(recs, player.Record{Age: player.Float(70)}))
			So(err, ShouldNotBeNil)

			Convey("Then the rows before it are not observed", func() {
				So(obs.unknown, ShouldBeEmpty)
				So(obs.fallback, ShouldEqual, 0)
			})
		})
	})
}

func TestNewAligner(t *testing.T) {
	Convey("Given a schema naming an unknown column", t, func() {
		enc, _ := schema.NewEncoder(nil, nil)
		s, err := schema.New(schema.Layout{Numeric: []string{"shoe_size"}}, enc, &schema.ClubEncoding{})
		So(err, ShouldBeNil)

		_, err = NewAligner(s)
		So(errors.Is(err, ErrUnboundColumn), ShouldBeTrue)
	})
}
