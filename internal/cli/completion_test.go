package cli

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/goagain/reglet-host/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompletionCommand_Bash(t *testing.T) {
	root := NewRootCommand(config.DefaultConfig(), nil, testLogger())

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"completion", "bash"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "bash") && !strings.Contains(output, "complete") {
		t.Errorf("expected bash completion script, got: %s", output[:min(200, len(output))])
	}
}

func TestCompletionCommand_Zsh(t *testing.T) {
	root := NewRootCommand(config.DefaultConfig(), nil, testLogger())

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"completion", "zsh"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if buf.Len() == 0 {
		t.Error("expected non-empty zsh completion output")
	}
}

func TestCompletionCommand_Fish(t *testing.T) {
	root := NewRootCommand(config.DefaultConfig(), nil, testLogger())

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"completion", "fish"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if buf.Len() == 0 {
		t.Error("expected non-empty fish completion output")
	}
}

func TestCompletionCommand_InvalidShell(t *testing.T) {
	root := NewRootCommand(config.DefaultConfig(), nil, testLogger())
	root.SetArgs([]string{"completion", "invalid"})

	if err := root.Execute(); err == nil {
		t.Error("expected error for invalid shell")
	}
}

func TestCompletionCommand_NoArgs(t *testing.T) {
	root := NewRootCommand(config.DefaultConfig(), nil, testLogger())
	root.SetArgs([]string{"completion"})

	if err := root.Execute(); err == nil {
		t.Error("expected error when no shell specified")
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
