package scan

import "errors"

var (
	ErrDirection = errors.New("unknown ranking direction")
	ErrOptions   = errors.New("invalid scan options")
)
