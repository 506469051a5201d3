package data

import (
	"errors"
	"fmt"
	"os"
)

// ErrInputNotFound matches every missing-input failure via errors.Is.
var ErrInputNotFound = errors.New("input not found")

// NotFoundError reports a missing input file. Kind names the role of the file
// (characteristics, timeseries, weather, manifest).
type NotFoundError struct {
	Kind string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s file not found: %s", e.Kind, e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrInputNotFound }

// RequireFile returns a *NotFoundError when path does not exist or is a directory.
func RequireFile(kind, path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &NotFoundError{Kind: kind, Path: path}
	}
	return nil
}
