package valuation

import (
	"errors"
	"fmt"
)

var (
	ErrFeatureMismatch = errors.New("feature mismatch")
	ErrInvalidModel    = errors.New("invalid model")
	ErrNonFinite       = errors.New("model produced a non-finite value")
)

// FeatureMismatchError reports a vector whose width disagrees with the
// model or schema. Row is -1 when the mismatch is not tied to one row.
// When the widths agree but the model was trained on columns in another
// order, Column names the first schema column that differs and Index its
// position.
type FeatureMismatchError struct {
	Expected int
	Got      int
	Row      int
	Index    int
	Column   string
	Found    string
}

func (e *FeatureMismatchError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: column %d is %q in the model, schema expects %q", ErrFeatureMismatch, e.Index, e.Found, e.Column)
	}
	if e.Row < 0 {
		return fmt.Sprintf("%s: expected %d features, got %d", ErrFeatureMismatch, e.Expected, e.Got)
	}
	return fmt.Sprintf("%s: row %d: expected %d features, got %d", ErrFeatureMismatch, e.Row, e.Expected, e.Got)
}

func (e *FeatureMismatchError) Unwrap() error { return ErrFeatureMismatch }
