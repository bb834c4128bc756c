package schema

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidSchema = errors.New("invalid feature schema")
	ErrEmptyDataset  = errors.New("dataset has no usable rows")
)
