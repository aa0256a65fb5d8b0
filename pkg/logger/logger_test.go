package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newBufferLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{Level: level, Output: &buf})
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(WARN)

	l.Infof("hidden %d", 1)
	l.Warnf("shown %d", 2)
	l.Errorf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message should be filtered at WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("Expected WARN line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("Expected ERROR line, got %q", out)
	}
}

func TestNamedSharesSink(t *testing.T) {
	l, buf := newBufferLogger(DEBUG)
	child := l.Named("catalog").Named("worker")

	child.Debugf("processing %s", "a.wav")

	if !strings.Contains(buf.String(), "[catalog] [worker] processing a.wav") {
		t.Errorf("Expected prefixed message, got %q", buf.String())
	}

	l.SetLevel(ERROR)
	child.Infof("dropped")
	if strings.Contains(buf.String(), "dropped") {
		t.Error("Child logger should follow the parent's level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", DEBUG, true},
		{" Warning ", WARN, true},
		{"ERROR", ERROR, true},
		{"verbose", INFO, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v,%v, expected %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Errorf("nothing %s", "here")
}
