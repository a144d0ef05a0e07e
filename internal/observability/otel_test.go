package observability

import (
	"context"
	"testing"

	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

func TestParseHeaders(t *testing.T) {
	h := parseHeaders(" api-key = abc ,broken, x=1,=y")
	if len(h) != 2 || h["api-key"] != "abc" || h["x"] != "1" {
		t.Fatalf("headers: got=%v", h)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty: want nil")
	}
}

func TestClampRatio(t *testing.T) {
	if clampRatio(-1) != 0 || clampRatio(2) != 1 || clampRatio(0.25) != 0.25 {
		t.Fatalf("clampRatio out of range")
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	_, span := Tracer().Start(context.Background(), "noop")
	span.End()
}
