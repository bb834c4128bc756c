package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrArtifactCorrupt  = errors.New("artifact corrupt")
)

// NotFoundError names the missing artifact.
type NotFoundError struct {
	Artifact string
	Path     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrArtifactNotFound, e.Artifact, e.Path)
}

// Is matches ErrArtifactNotFound and fs.ErrNotExist.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrArtifactNotFound || target == fs.ErrNotExist
}
