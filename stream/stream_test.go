package stream

import "testing"

type fakeSink struct {
	lines      []string
	separators int
}

func (f *fakeSink) CommitLine(kind BufferKind, line string) {
	f.lines = append(f.lines, line)
}

func (f *fakeSink) EmitSeparator() {
	f.separators++
}

func TestBeginIdempotent(t *testing.T) {
	c := New()
	c.Begin()
	c.Begin()
	if c.StateFor() != Streaming {
		t.Fatalf("expected Streaming, got %v", c.StateFor())
	}
}

// Invariant 2 — committed lines round-trip to the final message text,
// modulo a trailing separator.
func TestDeltasThenFinalRoundTrip(t *testing.T) {
	c := New()
	sink := &fakeSink{}

	c.PushAndMaybeCommit(Answer, "line one\nline two\npart")
	for c.OnCommitTick(Answer, sink) {
	}
	finished := c.ApplyFinalAnswer("line one\nline two\npartial-final", sink)
	if !finished {
		t.Fatalf("expected ApplyFinalAnswer to report finished")
	}

	got := ""
	for i, l := range sink.lines {
		if i > 0 {
			got += "\n"
		}
		got += l
	}
	want := "line one\nline two\npartial-final"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFinalizeWithTrailingSeparator(t *testing.T) {
	c := New()
	sink := &fakeSink{}
	c.PushAndMaybeCommit(Answer, "only line\n")
	c.OnCommitTick(Answer, sink)

	finished := c.Finalize(Answer, true, sink)
	if !finished {
		t.Fatalf("expected immediate finish when buffer already drained")
	}
	if sink.separators != 1 {
		t.Fatalf("expected one separator emitted, got %d", sink.separators)
	}
	if c.StateFor() != Idle {
		t.Fatalf("expected Idle after finalize, got %v", c.StateFor())
	}
}

func TestClearAllResets(t *testing.T) {
	c := New()
	c.PushAndMaybeCommit(Answer, "unfinished")
	c.ClearAll()
	if c.StateFor() != Idle {
		t.Fatalf("expected Idle after ClearAll")
	}
	sink := &fakeSink{}
	c.OnCommitTick(Answer, sink)
	if len(sink.lines) != 0 {
		t.Fatalf("expected no committed lines after ClearAll, got %v", sink.lines)
	}
}
