package config

import (
	"strings"
	"testing"
)

func TestValidateDuration(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		allowZero   bool
		wantErr     bool
		errContains string
	}{
		{name: "unset", value: "", wantErr: false},
		{name: "milliseconds", value: "500ms", wantErr: false},
		{name: "minutes", value: "2m", wantErr: false},
		{name: "zero allowed", value: "0", allowZero: true, wantErr: false},
		{name: "zero rejected", value: "0s", wantErr: true, errContains: "must be positive"},
		{name: "negative", value: "-1s", allowZero: true, wantErr: true, errContains: "must be positive"},
		{name: "missing unit", value: "10", wantErr: true, errContains: "invalid duration"},
		{name: "garbage", value: "soon", wantErr: true, errContains: "invalid duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDuration("max_wait", tt.value, tt.allowZero)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestValidateSelfName(t *testing.T) {
	tests := []struct {
		name    string
		self    string
		wantErr bool
	}{
		{"unset", "", false},
		{"windows name", "Updater.exe", false},
		{"unix name", "updater", false},
		{"unix path", "bin/updater", true},
		{"windows path", `C:\app\Updater.exe`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSelfName(tt.self)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSelfName(%q) error = %v, wantErr %v", tt.self, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLog(t *testing.T) {
	tests := []struct {
		name        string
		log         LogConfig
		wantErrs    int
		errContains string
	}{
		{name: "defaults", log: Default().Log, wantErrs: 0},
		{name: "uppercase level", log: LogConfig{Level: "DEBUG"}, wantErrs: 0},
		{name: "unknown level", log: LogConfig{Level: "trace"}, wantErrs: 1, errContains: "invalid level"},
		{name: "negative rotation", log: LogConfig{MaxSizeMB: -1, MaxBackups: -1}, wantErrs: 2, errContains: "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateLog(tt.log)
			if len(errs) != tt.wantErrs {
				t.Fatalf("validateLog() = %v, want %d errors", errs, tt.wantErrs)
			}
			if tt.errContains != "" && !strings.Contains(errs[0].Error(), tt.errContains) {
				t.Errorf("error %q should contain %q", errs[0].Error(), tt.errContains)
			}
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "max_wait", Message: "must be positive"}
	if err.Error() != "max_wait: must be positive" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidateFull(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("Validate() unexpected error for defaults = %v", err)
	}

	invalid := &Config{
		SelfName:     "bin/updater",
		PollInterval: "fast",
		MaxWait:      "0s",
		HTTPTimeout:  "-5s",
		UserAgent:    "two\nlines",
		Log:          LogConfig{Level: "loud"},
		History:      HistoryConfig{Keep: -1},
	}

	err := Validate(invalid)
	if err == nil {
		t.Fatal("Validate() should return error for invalid config")
	}
	if !strings.Contains(err.Error(), "validation errors") {
		t.Errorf("error should mention validation errors, got: %v", err)
	}
	for _, field := range []string{"self_name", "poll_interval", "max_wait", "http_timeout", "user_agent", "log.level", "history.keep"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should mention %s, got: %v", field, err)
		}
	}
}
