package config

import "errors"

// ErrLoadConfig wraps failures reading the file or environment layers;
// ErrInvalidConfig wraps values rejected by Validate.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
