package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		format   string
		wantJSON bool
	}{
		{name: "json", format: "json", wantJSON: true},
		{name: "empty_defaults_to_json", format: "", wantJSON: true},
		{name: "text", format: "TEXT", wantJSON: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			New(&buf, slog.LevelInfo, tt.format).Info("hello", "k", "v")

			var decoded map[string]any
			err := json.Unmarshal(buf.Bytes(), &decoded)

			if tt.wantJSON && err != nil {
				t.Fatalf("expected JSON line, got %q (%v)", buf.String(), err)
			}

			if !tt.wantJSON && !strings.Contains(buf.String(), "msg=hello") {
				t.Fatalf("expected text line, got %q", buf.String())
			}
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := New(&buf, slog.LevelWarn, FormatJSON)
	logger.Info("dropped")

	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("kept")

	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn should be written, got %q", buf.String())
	}
}
