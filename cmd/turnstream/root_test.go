package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"version", "sessions", "chat"} {
		if !names[want] {
			t.Fatalf("expected a %q subcommand, got %v", want, names)
		}
	}
}

func TestSessionsCmd_HasExpectedSubcommands(t *testing.T) {
	sessions := newSessionsCmd()
	names := map[string]bool{}
	for _, c := range sessions.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"list", "resume", "show", "branch", "checkout"} {
		if !names[want] {
			t.Fatalf("expected sessions %q subcommand, got %v", want, names)
		}
	}
}

func TestVersionCmd_PrintsVersion(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "turnstream") {
		t.Fatalf("output = %q, want it to mention turnstream", out.String())
	}
}

func TestSessionsResumeCmd_RequiresPrompt(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"sessions", "resume", "some-target"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected an error when --prompt is omitted")
	}
}
