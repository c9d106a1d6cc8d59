package textutil

import "testing"

func TestTruncateEllipsis(t *testing.T) {
	short := "Hello\nworld"
	if got := TruncateEllipsis(short, 80); got != short {
		t.Fatalf("got %q, want unchanged", got)
	}

	long := ""
	for i := 0; i < 90; i++ {
		long += "x"
	}
	got := TruncateEllipsis(long, 80)
	if got != long[:80]+"…" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateEllipsisMultiByte(t *testing.T) {
	// Each "é" is two bytes in UTF-8; rune-safe truncation must not split it.
	s := ""
	for i := 0; i < 85; i++ {
		s += "é"
	}
	got := TruncateEllipsis(s, 80)
	wantRunes := []rune(s)[:80]
	if got != string(wantRunes)+"…" {
		t.Fatalf("multi-byte truncation corrupted: %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("Hello\nworld"); got != "Hello" {
		t.Fatalf("got %q", got)
	}
	if got := FirstLine("no newline"); got != "no newline" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short"); got != "short" {
		t.Fatalf("got %q", got)
	}
}
