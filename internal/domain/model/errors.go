package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the domain. These allow errors.Is/As from callers.
var (
	ErrInvalidConfiguration = errors.New("invalid task configuration")
	ErrProtocolViolation    = errors.New("protocol violation")
)

// ConfigurationError reports the configuration field that prevents a run from
// starting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfiguration, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
