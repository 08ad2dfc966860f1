package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"adabot/internal/config"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.Log{Level: "info", Format: "json"}, &buf)

	log.Debug().Msg("hidden")
	log.Error().Err(errors.New("boom")).Str("guild_id", "g1").Msg("sweep failed")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["err"] != "boom" || entry["guild_id"] != "g1" || entry["message"] != "sweep failed" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Fatalf("missing timestamp in %v", entry)
	}
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	cl := CronLogger{Log: NewWithWriter(config.Log{Level: "debug", Format: "json"}, &buf)}

	cl.Info("wake", "now", "2026-03-10")
	cl.Error(errors.New("panic"), "job failed")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var info map[string]any
	if err := json.Unmarshal(lines[0], &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if info["level"] != "debug" || info["now"] != "2026-03-10" {
		t.Fatalf("unexpected info entry %v", info)
	}
}
