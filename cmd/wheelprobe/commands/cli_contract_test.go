package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestCLIContract(t *testing.T) {
	cmd := NewRootCmd()
	b := bytes.NewBufferString("")
	cmd.SetOut(b)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("root command failed: %v", err)
	}

	out := b.String()

	// Assert the flags and subcommands that are part of the tool's contract
	required := []string{
		"--wheel",
		"--extract-dir",
		"--keep",
		"--no-tests",
		"--require-numeric",
		"--json",
		"--prefs",
		"version",
	}

	for _, c := range required {
		if !strings.Contains(out, c) {
			t.Errorf("expected %q in root help", c)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	b := bytes.NewBufferString("")
	cmd.SetOut(b)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(b.String(), "wheelprobe version") {
		t.Errorf("unexpected version output: %q", b.String())
	}
}
