package gait

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to these so callers can use
// errors.Is for the class and errors.As for the details.
var (
	// ErrConfiguration marks a range table source that is missing or unreadable.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnknownMode marks a mode outside ValidModes.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrUnknownTask marks a task absent from a loaded RangeTable.
	ErrUnknownTask = errors.New("unknown task")
	// ErrInvalidRange marks a range entry that violates min <= max.
	ErrInvalidRange = errors.New("invalid range")
)

// UnknownModeError reports a mode argument outside the accepted set.
type UnknownModeError struct {
	Mode string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown mode %q: must be one of %s", e.Mode, ValidModesString())
}

func (e *UnknownModeError) Unwrap() error { return ErrUnknownMode }

// UnknownTaskError reports a task missing from a range table. Available
// lists the tasks the table does define so the caller can self-correct.
type UnknownTaskError struct {
	Task      string
	Available []string
}

func (e *UnknownTaskError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown task %q: range table defines no tasks", e.Task)
	}
	return fmt.Sprintf("unknown task %q: available tasks: %s", e.Task, strings.Join(e.Available, ", "))
}

func (e *UnknownTaskError) Unwrap() error { return ErrUnknownTask }

// ConfigurationError reports a range table source that could not be read.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("range table %s: %v", e.Path, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause, so
// errors.Is(err, fs.ErrNotExist) keeps working.
func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }
