package logger

import (
	"context"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"info", InfoLevel, false},
		{"warn", WarnLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		got, err := ParseLogLevel(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseLogLevel(%q) expected error", tc.input)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseLogLevel(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
		}
	}
}

func TestParseLogFormat(t *testing.T) {
	for _, input := range []string{"json", "text", "console"} {
		if _, err := ParseLogFormat(input); err != nil {
			t.Fatalf("ParseLogFormat(%q): %v", input, err)
		}
	}
	if _, err := ParseLogFormat("xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestZapLogger_WithAndContext(t *testing.T) {
	log, err := NewZapLogger(Config{Level: ErrorLevel, Format: JSONFormat})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	child := log.With("component", "test")
	if child == nil {
		t.Fatalf("With returned nil")
	}

	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("request id round trip failed: %q", got)
	}
	if log.WithContext(ctx) == nil {
		t.Fatalf("WithContext returned nil")
	}
	// No request id present: same logger is reused.
	if log.WithContext(context.Background()) != Logger(log) {
		t.Fatalf("expected identity logger without request id")
	}
}
