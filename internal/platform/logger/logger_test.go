package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValueRedactsSecrets(t *testing.T) {
	for _, key := range []string{"api_key", "openai_token", "authorization", "credentials_json"} {
		if got := sanitizeValue(key, "sk-live-123"); got != "[REDACTED]" {
			t.Fatalf("%s: want=%q got=%v", key, "[REDACTED]", got)
		}
	}
}

func TestSanitizeValueHashesSessionAndCase(t *testing.T) {
	a := sanitizeValue("session_id", "abc-123")
	b := sanitizeValue("session_id", "abc-123")
	s, ok := a.(string)
	if !ok || !strings.HasPrefix(s, "hash:") {
		t.Fatalf("session_id: want hash prefix got=%v", a)
	}
	if a != b {
		t.Fatalf("hash not stable: %v vs %v", a, b)
	}
	if c := sanitizeValue("case_number", "2023-CV-001"); c == "2023-CV-001" {
		t.Fatalf("case_number leaked: %v", c)
	}
}

func TestSanitizeKVsKeepsOddTrailingValue(t *testing.T) {
	out := sanitizeKVs([]interface{}{"path", "/api/chat", "dangling"})
	if len(out) != 3 {
		t.Fatalf("len: want=3 got=%d", len(out))
	}
	if out[1] != "/api/chat" {
		t.Fatalf("path: want=%q got=%v", "/api/chat", out[1])
	}
}

func TestNewTestModeIsNop(t *testing.T) {
	log, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("discarded", "k", "v")
	log.With("service", "x").Warn("discarded")
}
