package farm

import (
	"errors"
	"fmt"
	"regexp"
)

// TransportError wraps a network-level failure (connection refused,
// timeout, DNS). Farm transient per spec.md §7: callers log at warning
// and skip the current tick.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("farm: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError wraps a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("farm: http %d: %s", e.StatusCode, e.Body)
}

// fileEntityMissingPattern matches the farm's "file entity with id ...
// does not exist" message, surfaced as a 404 on run submission once the
// farm has archived the uploaded files out from under the dispatcher
// (spec.md §4.6, §7).
var fileEntityMissingPattern = regexp.MustCompile(`(?i)file\s*entity(?:\s+with\s+id\s+\d+)?\s+does not exist`)

// IsFileEntityMissing reports whether err is a 404 whose body matches the
// archived-files condition. When true, the caller must stop the process
// (state -> STOP) since no further progress is possible until restart.
func IsFileEntityMissing(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == 404 && fileEntityMissingPattern.MatchString(statusErr.Body)
}
