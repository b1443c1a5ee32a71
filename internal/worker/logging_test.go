package worker

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewLoggerLevelGate(t *testing.T) {
	ctx := context.Background()

	logger := NewLogger("warn", "text")
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be gated at warn level")
	}
	if !logger.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn should be enabled at warn level")
	}

	logger = NewLogger("nonsense", "json")
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("invalid level should fall back to info")
	}
}
