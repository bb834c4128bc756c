package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const sample = "\ufeffsofifa_id,short_name,age,overall,value_eur,club_name,goalkeeping_diving\n" +
	"1,Messi,33,93,67500000,FC Barcelona,6\n" +
	"2,Kid,17,60,,Ajax,\n" +
	"3,Broken,abc,70,1000,Roma,\n"

func TestDecode(t *testing.T) {
	Convey("Given a FIFA-style CSV export", t, func() {
		tbl, err := Decode(strings.NewReader(sample))
		So(err, ShouldBeNil)

		Convey("Then the BOM is stripped and rows are kept verbatim", func() {
			So(tbl.Header[0], ShouldEqual, "sofifa_id")
			So(tbl.Rows, ShouldHaveLength, 3)
			So(tbl.Rows[0][6], ShouldEqual, "6")
		})

		Convey("Then records map aliased headers onto fields", func() {
			recs, errs := tbl.Records()
			So(recs[0].ID, ShouldEqual, "1")
			So(*recs[0].MarketValueEUR, ShouldEqual, 67_500_000)
			So(*recs[0].Club, ShouldEqual, "FC Barcelona")
			So(recs[1].MarketValueEUR, ShouldBeNil)
			So(errs[0], ShouldBeNil)
			So(errs[1], ShouldBeNil)
			So(errs[2], ShouldNotBeNil)
		})

		Convey("Then columns are found by canonical name", func() {
			So(tbl.ColumnIndex("market_value_eur"), ShouldEqual, 4)
			So(tbl.ColumnIndex("missing"), ShouldEqual, -1)
		})
	})

	Convey("Given an empty input", t, func() {
		_, err := Decode(strings.NewReader(""))
		So(errors.Is(err, ErrEmptyTable), ShouldBeTrue)
	})
}

func TestSetColumn(t *testing.T) {
	Convey("Given a table", t, func() {
		tbl := &Table{Header: []string{"id"}, Rows: [][]string{{"1"}, {"2"}}}

		Convey("New columns are appended", func() {
			So(tbl.SetColumn("predicted_value_eur", []string{"10", "20"}), ShouldBeNil)
			So(tbl.Header, ShouldResemble, []string{"id", "predicted_value_eur"})
			So(tbl.Rows[1], ShouldResemble, []string{"2", "20"})

			Convey("And existing columns are overwritten in place", func() {
				So(tbl.SetColumn("predicted_value_eur", []string{"11", "21"}), ShouldBeNil)
				So(tbl.Header, ShouldHaveLength, 2)
				So(tbl.Rows[0], ShouldResemble, []string{"1", "11"})
			})
		})

		Convey("Wrong lengths are rejected", func() {
			So(errors.Is(tbl.SetColumn("x", []string{"1"}), ErrShape), ShouldBeTrue)
		})
	})
}

func TestRewrite(t *testing.T) {
	Convey("Given a dataset on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "players.csv")
		So(os.WriteFile(path, []byte(sample), 0o600), ShouldBeNil)
		at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

		So(BackupName(path, at), ShouldEqual, filepath.Join(dir, "players_backup_20240309_140507.csv"))

		tbl, err := Read(path)
		So(err, ShouldBeNil)
		So(tbl.SetColumn("ml_classification", []string{"FAIR", "NO_COMPARISON", ""}), ShouldBeNil)

		backup, err := Rewrite(path, tbl, at)
		So(err, ShouldBeNil)

		Convey("Then the backup holds the previous bytes", func() {
			prev, err := os.ReadFile(backup)
			So(err, ShouldBeNil)
			So(string(prev), ShouldEqual, sample)
		})

		Convey("Then the file holds the new column", func() {
			again, err := Read(path)
			So(err, ShouldBeNil)
			So(again.Header[len(again.Header)-1], ShouldEqual, "ml_classification")
			So(again.Rows[0][len(again.Header)-1], ShouldEqual, "FAIR")
		})

		Convey("Then a second rewrite in the same second gets its own backup", func() {
			second, err := Rewrite(path, tbl, at)
			So(err, ShouldBeNil)
			So(second, ShouldNotEqual, backup)
			So(second, ShouldEndWith, "_1.csv")
		})

		Convey("Then no temp files are left behind", func() {
			entries, err := os.ReadDir(dir)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 2)
		})
	})

	Convey("Given a missing dataset", t, func() {
		_, err := Rewrite(filepath.Join(t.TempDir(), "nope.csv"), &Table{}, time.Now())
		So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
	})
}

func TestEncode(t *testing.T) {
	Convey("Encoding quotes cells that need it", t, func() {
		var buf bytes.Buffer
		tbl := &Table{Header: []string{"name", "club"}, Rows: [][]string{{"Vinícius Jr.", "Real Madrid, CF"}}}
		So(tbl.Encode(&buf), ShouldBeNil)
		So(buf.String(), ShouldEqual, "name,club\nVinícius Jr.,\"Real Madrid, CF\"\n")
	})
}
