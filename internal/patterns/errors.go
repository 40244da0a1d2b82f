package patterns

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a pass interrupted by the caller's context. Detectors
// return it alongside whatever they found so far; the engine absorbs it into a
// partial result instead of surfacing it.
var ErrCancelled = errors.New("detection cancelled")

// ConfigurationError reports an invalid detection configuration. Validation
// runs before any detector, so a bad config never produces a partial pass.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid detection config: %s: %s", e.Field, e.Reason)
}

func newConfigError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
