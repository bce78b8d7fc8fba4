package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetLevel(Notice)

	logger := New("test")

	SetLevel(Notice)
	logger.Debugf("hidden %d", 1)
	logger.Noticef("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug message to be filtered out; got %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Fatalf("expected notice message in output; got %q", out)
	}

	buf.Reset()
	SetLevel(Debug)
	logger.Debugf("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatalf("expected debug message after raising verbosity; got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	type spec struct {
		in     string
		exp    Level
		expErr bool
	}
	specs := []spec{
		{"debug", Debug, false},
		{"INFO", Info, false},
		{"warn", Warning, false},
		{"error", Error, false},
		{"verbose", Notice, true},
	}

	for index, s := range specs {
		level, err := ParseLevel(s.in)
		if s.expErr != (err != nil) {
			t.Fatalf("[spec %d] expected error: %t; got %v", index, s.expErr, err)
		}
		if level != s.exp {
			t.Fatalf("[spec %d] expected level %d; got %d", index, s.exp, level)
		}
	}
}
