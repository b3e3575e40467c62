package util

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidatePort validates a port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", port)
	}
	return nil
}

// ValidatePositiveDuration validates a duration is strictly positive.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive: %v", d)
	}
	return nil
}

// ValidateRegex validates a Go regex pattern.
func ValidateRegex(pattern string) error {
	if pattern == "" {
		return nil
	}

	_, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}

	return nil
}

// ValidateRatio validates a value in the closed range [0, 1].
func ValidateRatio(value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("ratio must be between 0 and 1, got: %f", value)
	}
	return nil
}

// ValidateNonEmpty validates that a string is not empty.
func ValidateNonEmpty(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

// ValidateOneOf validates that value is one of the allowed values.
func ValidateOneOf(value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%q must be one of %s", value, strings.Join(allowed, ", "))
}
