package internal

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetOutput(&buf)

	if l.LogLevel() != LogLevelDefault {
		t.Fatal("unexpected default level", l.LogLevel())
	}
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Error("info should be filtered at the default level:", buf.String())
	}
	l.Warnf("visible %d", 42)
	if !strings.Contains(buf.String(), "visible 42") {
		t.Error("missing warning:", buf.String())
	}

	old := l.SetLogLevel(LevelInfo)
	if old != LogLevelDefault {
		t.Error("wrong old level", old)
	}
	buf.Reset()
	l.Info("now", "shown")
	if !strings.Contains(buf.String(), "now shown") {
		t.Error("missing info:", buf.String())
	}

	l.SetLogLevel(LevelError)
	buf.Reset()
	l.Warn("dropped")
	if buf.Len() != 0 {
		t.Error("warning should be filtered:", buf.String())
	}
}

func TestInvalidLevel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewLogger().SetLogLevel(LevelMax + 1)
}
