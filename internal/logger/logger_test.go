package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tc := range testCases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

type countingHook struct{ n int }

func (h *countingHook) Run(*zerolog.Event, zerolog.Level, string) { h.n++ }

func TestSetup_WritesServiceFieldAndRunsHooks(t *testing.T) {
	var buf bytes.Buffer
	hook := &countingHook{}
	l := setup(&buf, "info", "session-auth", hook)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l.Info().Str("user_id", "u1").Msg("login succeeded")
	l.Debug().Msg("filtered out")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if rec["service"] != "session-auth" {
		t.Errorf("service = %v, want session-auth", rec["service"])
	}
	if rec["user_id"] != "u1" {
		t.Errorf("user_id = %v, want u1", rec["user_id"])
	}
	if hook.n != 1 {
		t.Errorf("hook ran %d times, want 1", hook.n)
	}
}
