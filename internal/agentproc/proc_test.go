package agentproc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avllis/turnstream"
)

// fakeCodex writes an executable shell script that emits the given JSONL
// lines to stdout (one per -- line script argument is avoided; lines are
// baked into the script body, one per turn-selecting branch keyed on
// whether "resume" appears in argv).
func fakeCodex(t *testing.T, firstTurn, laterTurn []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-codex.sh")

	script := "#!/bin/sh\n" +
		"case \"$1 $2\" in\n" +
		"  \"exec resume\")\n" +
		joinLines(laterTurn) +
		"  ;;\n" +
		"  *)\n" +
		joinLines(firstTurn) +
		"  ;;\n" +
		"esac\n"

	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake codex: %v", err)
	}
	return path
}

func joinLines(lines []string) string {
	var out string
	for _, l := range lines {
		out += "    echo '" + l + "'\n"
	}
	return out
}

func collectUntil(t *testing.T, ch <-chan turnstream.Event, kind turnstream.EventKind, timeout time.Duration) []turnstream.Event {
	t.Helper()
	var got []turnstream.Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
			if ev.Kind == kind {
				return got
			}
		case <-deadline:
			t.Fatalf("timed out waiting for kind %v, got %+v so far", kind, got)
		}
	}
}

func TestProc_StartEmitsSessionConfigured(t *testing.T) {
	bin := fakeCodex(t,
		[]string{
			`{"type":"thread.started","thread_id":"th_1"}`,
			`{"type":"turn.started"}`,
			`{"type":"item.completed","item":{"type":"agent_message","text":"hello"}}`,
			`{"type":"turn.completed"}`,
		},
		nil,
	)

	dir := t.TempDir()
	session := Session{ID: "s1", CWD: dir, Binary: bin, Prompt: "hi"}

	p, err := Start(context.Background(), session)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop(context.Background())

	events := collectUntil(t, p.Output(), turnstream.EventTaskComplete, 5*time.Second)
	if len(events) == 0 || events[0].Kind != turnstream.EventSessionConfigured {
		t.Fatalf("expected SessionConfigured first, got %+v", events)
	}
	if events[0].SessionID != "th_1" {
		t.Fatalf("SessionID = %q, want th_1", events[0].SessionID)
	}

	var sawMessage bool
	for _, ev := range events {
		if ev.Kind == turnstream.EventAgentMessage && ev.Text == "hello" {
			sawMessage = true
		}
	}
	if !sawMessage {
		t.Fatalf("expected an agent_message event, got %+v", events)
	}
}

func TestProc_SendResumesWithThreadID(t *testing.T) {
	bin := fakeCodex(t,
		[]string{
			`{"type":"thread.started","thread_id":"th_42"}`,
			`{"type":"turn.completed"}`,
		},
		[]string{
			`{"type":"turn.started"}`,
			`{"type":"item.completed","item":{"type":"agent_message","text":"second turn"}}`,
			`{"type":"turn.completed"}`,
		},
	)

	dir := t.TempDir()
	session := Session{ID: "s1", CWD: dir, Binary: bin, Prompt: "first"}

	p, err := Start(context.Background(), session)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop(context.Background())

	collectUntil(t, p.Output(), turnstream.EventTaskComplete, 5*time.Second)

	if err := p.Send(context.Background(), "second"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	events := collectUntil(t, p.Output(), turnstream.EventTaskComplete, 5*time.Second)
	var sawSecond bool
	for _, ev := range events {
		if ev.Kind == turnstream.EventAgentMessage && ev.Text == "second turn" {
			sawSecond = true
		}
	}
	if !sawSecond {
		t.Fatalf("expected second-turn agent_message, got %+v", events)
	}
}

func TestProc_SendWithoutThreadIDFails(t *testing.T) {
	bin := fakeCodex(t, []string{`{"type":"turn.completed"}`}, nil)
	dir := t.TempDir()
	session := Session{ID: "s1", CWD: dir, Binary: bin, Prompt: "hi"}

	p, err := Start(context.Background(), session)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop(context.Background())

	collectUntil(t, p.Output(), turnstream.EventTaskComplete, 5*time.Second)

	if err := p.Send(context.Background(), "anything"); err != ErrNoThreadID {
		t.Fatalf("Send() error = %v, want ErrNoThreadID", err)
	}
}

func TestProc_StopIsIdempotentAndClosesOutput(t *testing.T) {
	bin := fakeCodex(t, []string{
		`{"type":"thread.started","thread_id":"th_1"}`,
		`{"type":"turn.completed"}`,
	}, nil)
	dir := t.TempDir()
	session := Session{ID: "s1", CWD: dir, Binary: bin, Prompt: "hi"}

	p, err := Start(context.Background(), session)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	collectUntil(t, p.Output(), turnstream.EventTaskComplete, 5*time.Second)

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	select {
	case _, ok := <-p.Output():
		if ok {
			t.Fatalf("expected output channel closed after Stop")
		}
	default:
	}
}

func TestStart_RejectsRelativeCWD(t *testing.T) {
	_, err := Start(context.Background(), Session{CWD: "relative/path", Binary: "codex"})
	if err == nil {
		t.Fatalf("expected error for relative CWD")
	}
}

func TestStart_RejectsMissingBinary(t *testing.T) {
	dir := t.TempDir()
	_, err := Start(context.Background(), Session{CWD: dir, Binary: filepath.Join(dir, "does-not-exist")})
	if err == nil {
		t.Fatalf("expected error for missing binary")
	}
}
