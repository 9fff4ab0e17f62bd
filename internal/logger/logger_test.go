package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestDebugSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)
	t.Cleanup(func() { SetVerbose(false) })

	Debug("hidden %d", 1)
	Info("hidden")
	Warn("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output in non-verbose mode, got %q", buf.String())
	}
}

func TestVerboseOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)
	t.Cleanup(func() { SetVerbose(false) })

	Section("Ingest")
	Debug("chunks: %d", 3)
	Info("done")
	Warn("slow")

	out := buf.String()
	for _, want := range []string{"=== Ingest ===", "[DEBUG] chunks: 3", "[INFO] done", "[WARN] slow"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestErrorAlwaysPrinted(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Error("boom: %v", "x")
	if !strings.Contains(buf.String(), "[ERROR] boom: x") {
		t.Errorf("expected error output, got %q", buf.String())
	}
}
