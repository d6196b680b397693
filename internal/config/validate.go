package config

import (
	"fmt"
	"strings"
	"time"
)

// validLogLevels are the levels the logger understands.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config for valid values.
func Validate(c *Config) error {
	var errors []string

	if err := validateSelfName(c.SelfName); err != nil {
		errors = append(errors, err.Error())
	}

	durations := []struct {
		field     string
		value     string
		allowZero bool
	}{
		{"poll_interval", c.PollInterval, false},
		{"max_wait", c.MaxWait, false},
		{"http_timeout", c.HTTPTimeout, true},
	}
	for _, d := range durations {
		if err := validateDuration(d.field, d.value, d.allowZero); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if strings.ContainsAny(c.UserAgent, "\r\n") {
		errors = append(errors, ValidationError{
			Field:   "user_agent",
			Message: "must be a single line",
		}.Error())
	}

	for _, err := range validateLog(c.Log) {
		errors = append(errors, err.Error())
	}

	if c.History.Keep < 0 {
		errors = append(errors, ValidationError{
			Field:   "history.keep",
			Message: "cannot be negative",
		}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// validateSelfName rejects paths: the self-update rule matches a bare file name.
func validateSelfName(name string) error {
	if name == "" {
		return nil
	}
	if strings.ContainsAny(name, `/\`) {
		return ValidationError{
			Field:   "self_name",
			Message: fmt.Sprintf("must be a file name, not a path: '%s'", name),
		}
	}
	return nil
}

func validateDuration(field, value string, allowZero bool) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid duration '%s' (examples: 500ms, 1s, 2m)", value),
		}
	}
	if d < 0 || (d == 0 && !allowZero) {
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be positive, got '%s'", value),
		}
	}
	return nil
}

func validateLog(l LogConfig) []error {
	var errs []error

	if l.Level != "" && !validLogLevels[strings.ToLower(l.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s' (must be debug, info, warn or error)", l.Level),
		})
	}

	if l.MaxSizeMB < 0 {
		errs = append(errs, ValidationError{
			Field:   "log.max_size_mb",
			Message: "cannot be negative",
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "log.max_backups",
			Message: "cannot be negative",
		})
	}

	return errs
}
