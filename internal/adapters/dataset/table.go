// Package dataset reads and rewrites the tabular player dataset (CSV).
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/scout/internal/domain/player"
)

// Table is a CSV file held in memory. Rows keep every source cell so a
// rewrite never loses columns the service does not understand.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read loads a CSV file.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Decode parses CSV from r. The first record is the header.
func Decode(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return &Table{Header: header, Rows: rows}, nil
}

// Encode writes the table as CSV.
func (t *Table) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// ColumnIndex returns the position of a column, matched on its canonical name.
func (t *Table) ColumnIndex(name string) int {
	want := player.Canonical(name)
	for i, h := range t.Header {
		if player.Canonical(h) == want {
			return i
		}
	}
	return -1
}

// SetColumn writes values into column name, appending the column when the
// table does not have it yet.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("%w: %d values for %d rows", ErrShape, len(values), len(t.Rows))
	}
	idx := t.ColumnIndex(name)
	if idx < 0 {
		t.Header = append(t.Header, name)
		idx = len(t.Header) - 1
	}
	for i := range t.Rows {
		for len(t.Rows[i]) <= idx {
			t.Rows[i] = append(t.Rows[i], "")
		}
		t.Rows[i][idx] = values[i]
	}
	return nil
}

// Records maps every row onto a player record. Unknown columns are ignored;
// a malformed cell makes that row's record carry the error in errs[i].
func (t *Table) Records() ([]player.Record, []error) {
	recs := make([]player.Record, len(t.Rows))
	errs := make([]error, len(t.Rows))
	for i, row := range t.Rows {
		for j, h := range t.Header {
			if j >= len(row) {
				break
			}
			if _, err := recs[i].SetColumn(h, row[j]); err != nil && errs[i] == nil {
				errs[i] = err
			}
		}
	}
	return recs, errs
}

// BackupName returns "<name>_backup_YYYYMMDD_HHMMSS<ext>" next to path.
func BackupName(path string, at time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "_backup_" + at.Format("20060102_150405") + ext
}

// Snapshot copies path to a timestamped backup and returns the backup path.
func Snapshot(path string, at time.Time) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	dst := BackupName(path, at)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	// Two runs inside one second get numbered backups.
	for n := 1; errors.Is(err, fs.ErrExist) && n < 100; n++ {
		ext := filepath.Ext(path)
		dst = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(BackupName(path, at), ext), n, ext)
		out, err = os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dst, nil
}

// Rewrite backs up path and then replaces it with t via a temp file and
// rename, so readers never see a half-written file.
func Rewrite(path string, t *Table, at time.Time) (string, error) {
	backup, err := Snapshot(path, at)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return backup, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := t.Encode(tmp); err != nil {
		_ = tmp.Close()
		return backup, fmt.Errorf("encode table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return backup, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return backup, err
	}
	return backup, nil
}
