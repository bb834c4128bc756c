package dataset

import "errors"

var (
	ErrEmptyTable = errors.New("dataset has no header")
	ErrShape      = errors.New("column length does not match row count")
)
