package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")
	log.Info("hidden")
	log.Warn("shown", "code", "55")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"code":"55"`) {
		t.Fatalf("expected json attribute, got %s", out)
	}

	buf.Reset()
	New(&buf, "", "text").Info("hello", "participant", "42")
	if !strings.Contains(buf.String(), "participant=42") {
		t.Fatalf("expected text attribute, got %s", buf.String())
	}
}
