package features

import (
	"errors"
	"fmt"
)

var (
	ErrUnboundColumn = errors.New("schema column has no record attribute")
	ErrWidth         = errors.New("aligned vector width mismatch")
)

// RowError locates a failure inside a batch.
type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Index, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }
