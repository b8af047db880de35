package platesolve

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a parameter that makes solving impossible. It is
// returned before any I/O and is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func configError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ErrSlewRejected is returned when the telescope refuses a centering slew.
var ErrSlewRejected = errors.New("telescope rejected slew")
