package reconcile

import "errors"

var (
	// ErrDrift indicates the farm's live state disagrees with the
	// declared configuration while running in read-only mode.
	ErrDrift = errors.New("reconcile: configuration drift in read-only mode")
	// ErrAmbiguous indicates a lookup that must resolve to exactly one
	// farm record matched zero or more than one.
	ErrAmbiguous = errors.New("reconcile: ambiguous farm lookup")
	// ErrInvariant indicates a locally tracked invariant (e.g. a
	// non-negative device count) was violated mid-reconciliation.
	ErrInvariant = errors.New("reconcile: invariant violated")
	// ErrMissingEnv indicates the environment variable backing a
	// project's TASKCLUSTER_ACCESS_TOKEN injection is not set.
	ErrMissingEnv = errors.New("reconcile: required environment variable not set")
	// ErrMissingFile indicates a declared test or application file has
	// not yet been uploaded to the farm.
	ErrMissingFile = errors.New("reconcile: declared file not present on farm")
)
