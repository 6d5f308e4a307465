package config

import "errors"

// Sentinel errors, matching the teacher's core/errors.go convention of
// package-qualified sentinel messages wrapped with context at the call site.
var (
	ErrFileMissing       = errors.New("config: declared file does not exist on disk")
	ErrDuplicateFileName = errors.New("config: file name used by more than one project")
	ErrNoDefaults        = errors.New("config: projects.defaults is required")
	ErrMissingField      = errors.New("config: required field missing")
)
