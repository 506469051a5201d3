package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every configuration failure via errors.Is.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigError reports a missing or invalid key.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("missing required config key: %s", e.Key)
	}
	return fmt.Sprintf("invalid config key %s: %s", e.Key, e.Message)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// RatioError reports a set of fractions that does not sum to 1.0.
type RatioError struct {
	Field string
	Sum   float64
}

func (e *RatioError) Error() string {
	return fmt.Sprintf("%s must sum to 1.0, got %g", e.Field, e.Sum)
}

func (e *RatioError) Is(target error) bool { return target == ErrConfiguration }
