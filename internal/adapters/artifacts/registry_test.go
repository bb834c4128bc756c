package artifacts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/schema"
	"github.com/okian/scout/internal/domain/valuation"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func fittedSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Fit([]player.Record{
		{Overall: player.Float(70), Age: player.Float(22), League: player.Text("Serie A"), Club: player.Text("Roma"), MarketValueEUR: player.Float(2e6)},
		{Overall: player.Float(85), Age: player.Float(29), League: player.Text("La Liga"), Club: player.Text("Sevilla"), MarketValueEUR: player.Float(9e6)},
	})
	require.NoError(t, err)
	return s
}

func writeArtifacts(t *testing.T, dir string, s *schema.Schema, width int) {
	t.Helper()
	require.NoError(t, SaveSchema(dir, s))
	require.NoError(t, SaveModel(dir, &valuation.Document{
		Kind:         valuation.KindLinear,
		Intercept:    valuation.Forward(1e6),
		Coefficients: make([]float64, width),
	}))
}

func TestRegistryLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given a complete artifacts directory", t, func() {
		dir := t.TempDir()
		s := fittedSchema(t)
		writeArtifacts(t, dir, s, s.Width())
		r := NewRegistry(dir)

		So(r.Ready(), ShouldBeFalse)

		Convey("When loaded", func() {
			b, err := r.Load(ctx)
			So(err, ShouldBeNil)

			Convey("Then the bundle round-trips the schema", func() {
				So(r.Ready(), ShouldBeTrue)
				So(b.Schema.Columns(), ShouldResemble, s.Columns())
				So(b.Schema.CategoricalDefault("league"), ShouldEqual, s.CategoricalDefault("league"))
				v, _ := b.Schema.Club().Lookup("Sevilla")
				So(v, ShouldEqual, 9e6)
				So(b.Predictor.Transform(), ShouldEqual, valuation.TransformLog1p)
			})

			Convey("Then later loads return the cached bundle", func() {
				So(os.Remove(filepath.Join(dir, ModelFile)), ShouldBeNil)
				again, err := r.Load(ctx)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, b)
			})
		})

		Convey("When many goroutines load at once", func() {
			var wg sync.WaitGroup
			got := make([]*Bundle, 32)
			for i := range got {
				wg.Add(1)
				go func() {
					defer wg.Done()
					got[i], _ = r.Load(ctx)
				}()
			}
			wg.Wait()

			Convey("Then they all share one bundle", func() {
				for _, b := range got {
					So(b, ShouldNotBeNil)
					So(b, ShouldEqual, got[0])
				}
			})
		})
	})

	Convey("Given a directory missing the encoder", t, func() {
		dir := t.TempDir()
		s := fittedSchema(t)
		writeArtifacts(t, dir, s, s.Width())
		So(os.Remove(filepath.Join(dir, EncoderFile)), ShouldBeNil)
		r := NewRegistry(dir)

		_, err := r.Load(ctx)

		Convey("Then a not-found error names it and nothing is cached", func() {
			var nf *NotFoundError
			So(errors.As(err, &nf), ShouldBeTrue)
			So(nf.Artifact, ShouldEqual, EncoderFile)
			So(errors.Is(err, ErrArtifactNotFound), ShouldBeTrue)
			So(errors.Is(err, fs.ErrNotExist), ShouldBeTrue)
			So(r.Ready(), ShouldBeFalse)
		})

		Convey("Then a later load retries and succeeds once the file exists", func() {
			writeArtifacts(t, dir, s, s.Width())
			b, err := r.Load(ctx)
			So(err, ShouldBeNil)
			So(b, ShouldNotBeNil)
			So(r.Ready(), ShouldBeTrue)
		})
	})

	Convey("Given a model trained on a different width", t, func() {
		dir := t.TempDir()
		s := fittedSchema(t)
		writeArtifacts(t, dir, s, s.Width()+2)

		_, err := NewRegistry(dir).Load(ctx)
		So(errors.Is(err, valuation.ErrFeatureMismatch), ShouldBeTrue)
	})

	Convey("Given a model whose columns are in another order", t, func() {
		dir := t.TempDir()
		s := fittedSchema(t)
		names := s.Columns()
		slices.Reverse(names)
		require.NoError(t, SaveSchema(dir, s))
		require.NoError(t, SaveModel(dir, &valuation.Document{
			Kind:         valuation.KindLinear,
			FeatureNames: names,
			Coefficients: make([]float64, s.Width()),
		}))

		_, err := NewRegistry(dir).Load(ctx)

		Convey("Then the load fails naming the first differing column", func() {
			var mm *valuation.FeatureMismatchError
			So(errors.As(err, &mm), ShouldBeTrue)
			So(mm.Index, ShouldEqual, 0)
			So(mm.Column, ShouldEqual, s.Columns()[0])
			So(mm.Found, ShouldEqual, names[0])
		})
	})

	Convey("Given a model naming the schema columns in order", t, func() {
		dir := t.TempDir()
		s := fittedSchema(t)
		require.NoError(t, SaveSchema(dir, s))
		require.NoError(t, SaveModel(dir, &valuation.Document{
			Kind:         valuation.KindLinear,
			FeatureNames: s.Columns(),
			Coefficients: make([]float64, s.Width()),
		}))

		_, err := NewRegistry(dir).Load(ctx)
		So(err, ShouldBeNil)
	})

	Convey("Given a model with an unknown target transform", t, func() {
		dir := t.TempDir()
		s := fittedSchema(t)
		require.NoError(t, SaveSchema(dir, s))
		require.NoError(t, SaveModel(dir, &valuation.Document{
			Kind:            valuation.KindLinear,
			TargetTransform: "sqrt",
			Coefficients:    make([]float64, s.Width()),
		}))

		_, err := NewRegistry(dir).Load(ctx)
		So(errors.Is(err, ErrArtifactCorrupt), ShouldBeTrue)
		So(errors.Is(err, valuation.ErrInvalidModel), ShouldBeTrue)
	})

	Convey("Given a corrupt model file", t, func() {
		dir := t.TempDir()
		s := fittedSchema(t)
		writeArtifacts(t, dir, s, s.Width())
		So(os.WriteFile(filepath.Join(dir, ModelFile), []byte("{not json"), 0o600), ShouldBeNil)

		_, err := NewRegistry(dir).Load(ctx)
		So(errors.Is(err, ErrArtifactCorrupt), ShouldBeTrue)
	})

	Convey("Given an empty directory", t, func() {
		_, err := ReadBundle(t.TempDir())
		So(errors.Is(err, ErrArtifactNotFound), ShouldBeTrue)
	})
}
