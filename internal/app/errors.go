package service

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoDataset    = errors.New("no reference dataset configured")

	ErrPlayerNotFound = errors.New("player not found in reference dataset")
)
