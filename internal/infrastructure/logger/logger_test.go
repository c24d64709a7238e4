package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/gojournal/internal/domain"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewWithWriterFormats(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		assertions func(t *testing.T, output string)
	}{
		{
			name:   "json",
			format: "json",
			assertions: func(t *testing.T, output string) {
				var line map[string]any
				if err := json.Unmarshal([]byte(output), &line); err != nil {
					t.Fatalf("expected JSON output, got %q", output)
				}
				if line["message"] != "hello" || line["service"] != "gojournal" {
					t.Fatalf("unexpected fields %v", line)
				}
			},
		},
		{
			name:   "console",
			format: "console",
			assertions: func(t *testing.T, output string) {
				if strings.HasPrefix(output, "{") || !strings.Contains(output, "hello") {
					t.Fatalf("expected console output, got %q", output)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(Config{Level: "info", Format: tt.format, Service: "gojournal"}, &buf)
			l.Info().Msg("hello")
			tt.assertions(t, buf.String())
		})
	}
}

func TestNewWithWriterFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "warn"}, &buf)

	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}

	l.Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn output, got %q", buf.String())
	}
}

func TestForRequest(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(Config{Level: "info"}, &buf)

	ctx := domain.WithRequestID(context.Background(), "req-42")
	ctx = domain.WithActor(ctx, domain.Actor{ID: "clerk-1", Role: domain.RoleClerk})

	l := ForRequest(ctx, base)
	l.Info().Msg("posted")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-42"`, `"actor_id":"clerk-1"`, `"role":"clerk"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
