package logging

import (
	"log/slog"
	"slices"
	"testing"
)

func TestSplitLevelFlag(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		args      []string
		wantLevel string
		wantArgs  []string
	}{
		{"default", "", []string{"serve"}, "info", []string{"serve"}},
		{"env only", "debug", []string{"ask", "hi"}, "debug", []string{"ask", "hi"}},
		{"long equals", "warn", []string{"--log-level=error", "serve"}, "error", []string{"serve"}},
		{"short equals", "", []string{"serve", "-log-level=debug"}, "debug", []string{"serve"}},
		{"separate value", "", []string{"--log-level", "warn", "check"}, "warn", []string{"check"}},
		{"dangling flag", "", []string{"check", "--log-level"}, "info", []string{"check"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			level, rest := splitLevelFlag(tc.env, tc.args)
			if level != tc.wantLevel {
				t.Errorf("level = %q, want %q", level, tc.wantLevel)
			}
			if !slices.Equal(rest, tc.wantArgs) {
				t.Errorf("args = %v, want %v", rest, tc.wantArgs)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
