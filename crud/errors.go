package crud

import (
	"errors"
	"fmt"
)

// ErrQueryDisabled is returned by read operations whose input disables them,
// such as GetByID with a non-positive id. No network call was made.
var ErrQueryDisabled = errors.New("query disabled")

// ConfigError reports an integration mistake: a missing adapter capability or
// an invalid resource configuration. It surfaces synchronously and loudly at
// construction or first use, never as a silent degradation.
type ConfigError struct {
	Entity  string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("crud: %s: %s %s", e.Entity, e.Field, e.Message)
	}
	return fmt.Sprintf("crud: %s: %s", e.Entity, e.Message)
}
