package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "abc")
	if got := Int("CHUNK_SIZE", 2000); got != 2000 {
		t.Fatalf("Int: want=2000 got=%d", got)
	}
	t.Setenv("CHUNK_SIZE", " 1500 ")
	if got := Int("CHUNK_SIZE", 2000); got != 1500 {
		t.Fatalf("Int: want=1500 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("CHAT_SESSION_LOCK", "on")
	if !Bool("CHAT_SESSION_LOCK", false) {
		t.Fatalf("Bool: want=true")
	}
	t.Setenv("CHAT_SESSION_LOCK", "maybe")
	if Bool("CHAT_SESSION_LOCK", false) {
		t.Fatalf("Bool: want default false")
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("INDEX_POLL_INTERVAL_SECONDS", "2")
	if got := Seconds("INDEX_POLL_INTERVAL_SECONDS", 5*time.Second); got != 2*time.Second {
		t.Fatalf("Seconds: want=2s got=%s", got)
	}
	t.Setenv("INDEX_POLL_INTERVAL_SECONDS", "")
	if got := Seconds("INDEX_POLL_INTERVAL_SECONDS", 5*time.Second); got != 5*time.Second {
		t.Fatalf("Seconds default: want=5s got=%s", got)
	}
}
