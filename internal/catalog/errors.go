package catalog

import (
	"errors"
	"fmt"
)

// ErrModelNotFound is returned when no canonical model has the requested name.
var ErrModelNotFound = errors.New("model not found")

// AdapterUnavailableError reports a source that failed, timed out, or
// panicked during a refresh. The source is skipped for that cycle only.
type AdapterUnavailableError struct {
	SourceID string
	Err      error
}

func (e *AdapterUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.SourceID, e.Err)
}

func (e *AdapterUnavailableError) Unwrap() error { return e.Err }
