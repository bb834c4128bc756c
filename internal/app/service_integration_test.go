package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/scout/internal/adapters/dataset"
	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/scan"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceRankings(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service over a reference dataset", t, func() {
		art, path := fixture(t, players)
		svc := service.New(
			service.WithArtifactsDir(art),
			service.WithDatasetPath(path),
			service.WithScanChunks(2, 2),
		)

		Convey("When asking for the most undervalued players", func() {
			rank, err := svc.TopUndervalued(ctx, service.RankingQuery{})
			So(err, ShouldBeNil)

			Convey("Then only positive gaps are ranked, largest first", func() {
				So(rank.Entries, ShouldHaveLength, 2)
				So(rank.Entries[0].Name, ShouldEqual, "Alpha")
				So(rank.Entries[0].Rank, ShouldEqual, 1)
				So(rank.Entries[1].Name, ShouldEqual, "Echo")
				So(rank.Excluded[scan.ExclusionZeroActual], ShouldEqual, 1)
				So(rank.Sampled, ShouldBeFalse)
			})
		})

		Convey("When asking for the most overvalued players", func() {
			rank, err := svc.TopOvervalued(ctx, service.RankingQuery{TopN: 1})
			So(err, ShouldBeNil)
			So(rank.Entries, ShouldHaveLength, 1)
			So(rank.Entries[0].Name, ShouldEqual, "Foxtrot")
			So(rank.Entries[0].Difference, ShouldBeLessThan, 0)
		})

		Convey("When filtering by league", func() {
			rank, err := svc.TopUndervalued(ctx, service.RankingQuery{Filters: scan.Filters{League: "la liga"}})
			So(err, ShouldBeNil)
			So(rank.Entries, ShouldHaveLength, 1)
			So(rank.Entries[0].Name, ShouldEqual, "Echo")
		})

		Convey("When requiring a minimum relative gap", func() {
			rank, err := svc.TopUndervalued(ctx, service.RankingQuery{MinPercent: 35})
			So(err, ShouldBeNil)
			So(rank.Entries, ShouldHaveLength, 1)
			So(rank.Entries[0].Name, ShouldEqual, "Alpha")
		})

		Convey("When the minimum percentage is out of range", func() {
			_, err := svc.TopUndervalued(ctx, service.RankingQuery{MinPercent: 120})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})

	Convey("Given a sample smaller than the dataset", t, func() {
		art, path := fixture(t, players)
		svc := service.New(
			service.WithArtifactsDir(art),
			service.WithDatasetPath(path),
			service.WithScanSample(3, 42),
		)

		rank, err := svc.TopUndervalued(ctx, service.RankingQuery{})
		So(err, ShouldBeNil)
		So(rank.Sampled, ShouldBeTrue)
		So(rank.Candidates, ShouldBeLessThanOrEqualTo, 3)
	})

	Convey("Given a dataset that repeats a player", t, func() {
		art, path := fixture(t, players+"1,Alpha,24,80,50000000,Roma,Serie A\n")
		svc := service.New(service.WithArtifactsDir(art), service.WithDatasetPath(path))

		rank, err := svc.TopUndervalued(ctx, service.RankingQuery{})
		So(err, ShouldBeNil)

		Convey("Then the repeated row is ranked once", func() {
			So(rank.Entries, ShouldHaveLength, 2)
			So(rank.Entries[0].Name, ShouldEqual, "Alpha")
			So(rank.Entries[1].Name, ShouldEqual, "Echo")
			So(rank.Excluded[scan.ExclusionDuplicate], ShouldEqual, 1)
		})
	})

	Convey("Given a service without a dataset", t, func() {
		art, _ := fixture(t, players)
		svc := service.New(service.WithArtifactsDir(art))

		_, err := svc.TopUndervalued(ctx, service.RankingQuery{})
		So(errors.Is(err, service.ErrNoDataset), ShouldBeTrue)
	})
}

func TestServiceRegenerate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a dataset with one malformed row", t, func() {
		art, path := fixture(t, players+"7,Broken,abc,70,1000000,Roma,Serie A\n")
		svc := service.New(service.WithArtifactsDir(art), service.WithDatasetPath(path))

		Convey("When regenerating", func() {
			rep, err := svc.Regenerate(ctx, "", nil)
			So(err, ShouldBeNil)

			Convey("Then every row is accounted for", func() {
				So(rep.Rows, ShouldEqual, 7)
				So(rep.Failed, ShouldEqual, 1)
				So(rep.Labels["UNDERVALUED"], ShouldEqual, 2)
				So(rep.Labels["OVERVALUED"], ShouldEqual, 2)
				So(rep.Labels["FAIR"], ShouldEqual, 1)
				So(rep.Labels["NO_COMPARISON"], ShouldEqual, 1)
				So(rep.RunID, ShouldNotBeBlank)
			})

			Convey("Then a backup of the previous file exists", func() {
				_, err := os.Stat(rep.Backup)
				So(err, ShouldBeNil)
				So(filepath.Dir(rep.Backup), ShouldEqual, filepath.Dir(path))
			})

			Convey("Then the annotation columns are appended", func() {
				tbl, err := dataset.Read(path)
				So(err, ShouldBeNil)
				So(tbl.Header, ShouldHaveLength, 11)

				pred := tbl.ColumnIndex(scan.ColumnPredicted)
				diff := tbl.ColumnIndex(scan.ColumnDifference)
				label := tbl.ColumnIndex(scan.ColumnClassification)
				tol := tbl.ColumnIndex(scan.ColumnTolerance)
				So(tbl.Rows[0][pred], ShouldEqual, "80000000.00")
				So(tbl.Rows[0][diff], ShouldEqual, "30000000.00")
				So(tbl.Rows[0][label], ShouldEqual, "UNDERVALUED")
				So(tbl.Rows[0][tol], ShouldEqual, "0.08")
				So(tbl.Rows[3][diff], ShouldEqual, "")
				So(tbl.Rows[3][label], ShouldEqual, "NO_COMPARISON")
				So(tbl.Rows[6][pred], ShouldEqual, "")
			})

			Convey("Then running again overwrites in place", func() {
				first, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				_, err = svc.Regenerate(ctx, path, nil)
				So(err, ShouldBeNil)
				second, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(second), ShouldEqual, string(first))
			})
		})
	})
}

const seasons = "sofifa_id,short_name,age,overall,value_eur,club_name,league_name,data_year,player_positions\n" +
	"1,Alpha,23,78,40000000,Roma,Serie A,2020,\"ST, LW\"\n" +
	"1,Alpha,24,80,50000000,Roma,Serie A,2021,\"ST, LW\"\n" +
	"2,Bravo,30,70,90000000,Sevilla,La Liga,2021,CB\n"

func TestServiceProfile(t *testing.T) {
	ctx := context.Background()

	Convey("Given a reference dataset with two seasons of one player", t, func() {
		art, path := fixture(t, seasons)
		svc := service.New(service.WithArtifactsDir(art), service.WithDatasetPath(path))

		Convey("When the player's profile is requested", func() {
			p, err := svc.Profile(ctx, "1", nil)
			So(err, ShouldBeNil)

			Convey("Then the latest season is evaluated against its own value", func() {
				So(p.Seasons, ShouldEqual, 2)
				So(*p.Player.DataYear, ShouldEqual, 2021)
				So(p.Evaluation.PredictedValue, ShouldAlmostEqual, 80e6, 1)
				So(*p.Evaluation.ActualValue, ShouldEqual, 50e6)
				So(p.Evaluation.Classification, ShouldEqual, "UNDERVALUED")
			})
		})

		Convey("When a tolerance is given", func() {
			tol := 0.5
			p, err := svc.Profile(ctx, "1", &tol)
			So(err, ShouldBeNil)
			So(p.Evaluation.Classification, ShouldEqual, "FAIR")
		})

		Convey("When the id is unknown", func() {
			_, err := svc.Profile(ctx, "404", nil)
			So(errors.Is(err, service.ErrPlayerNotFound), ShouldBeTrue)
		})

		Convey("When the id is blank", func() {
			_, err := svc.Profile(ctx, " ", nil)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the filter options are listed", func() {
			opts, err := svc.FilterOptions(ctx)
			So(err, ShouldBeNil)

			Convey("Then every distinct value appears once, sorted", func() {
				So(opts.Players, ShouldEqual, 3)
				So(opts.Leagues, ShouldResemble, []string{"La Liga", "Serie A"})
				So(opts.Clubs, ShouldResemble, []string{"Roma", "Sevilla"})
				So(opts.Positions, ShouldResemble, []string{"CB", "LW", "ST"})
				So(opts.PositionCategories, ShouldResemble, []string{"Defender", "Forward"})
				So(opts.Years, ShouldResemble, []int{2020, 2021})
				So(*opts.Age, ShouldResemble, service.Range{Min: 23, Max: 30})
				So(*opts.MarketValue, ShouldResemble, service.Range{Min: 40e6, Max: 90e6})
			})
		})
	})

	Convey("Given a service without a dataset", t, func() {
		art, _ := fixture(t, seasons)
		_, err := service.New(service.WithArtifactsDir(art)).Profile(ctx, "1", nil)
		So(errors.Is(err, service.ErrNoDataset), ShouldBeTrue)
	})
}
