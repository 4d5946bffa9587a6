package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		Init(tt.level, &bytes.Buffer{})
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("Init(%q) level = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestInitWritesToWriter(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	Init("info", &buf)
	log.Debug().Msg("hidden")
	log.Warn().Str("path", "a.py").Msg("skipped")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message written at info level: %q", out)
	}
	if !strings.Contains(out, "skipped") || !strings.Contains(out, "a.py") {
		t.Errorf("warn message missing from output: %q", out)
	}
}
