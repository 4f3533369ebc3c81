package refpix

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidFormat indicates the input file is not a readable xlsx container.
var ErrInvalidFormat = errors.New("invalid xlsx format")

// ContainerError is the fatal error of a run: the spreadsheet could not be
// read far enough to look for pictures. Row-level problems never produce one.
type ContainerError struct {
	Path string
	Err  error
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("container error in %q: %v", e.Path, e.Err)
}

func (e *ContainerError) Unwrap() error {
	return e.Err
}

// NewContainerError wraps cause under the given sentinel kind.
func NewContainerError(path string, kind, cause error) *ContainerError {
	return &ContainerError{
		Path: path,
		Err:  fmt.Errorf("%w: %w", kind, cause),
	}
}
