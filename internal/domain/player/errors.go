package player

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord is the kind of every record validation failure.
var ErrInvalidRecord = errors.New("invalid player record")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidRecord, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }
