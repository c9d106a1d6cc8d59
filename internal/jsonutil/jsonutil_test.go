package jsonutil

import "testing"

func TestProbeString(t *testing.T) {
	top := map[string]any{"last_response_id": "r1"}
	if got := ProbeString(top, "state", "last_response_id"); got != "r1" {
		t.Fatalf("got %q, want r1", got)
	}

	nested := map[string]any{"state": map[string]any{"last_response_id": "r2"}}
	if got := ProbeString(nested, "state", "last_response_id"); got != "r2" {
		t.Fatalf("got %q, want r2", got)
	}

	if got := ProbeString(map[string]any{}, "state", "last_response_id"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestGetIntFloat(t *testing.T) {
	m := map[string]any{"n": float64(42), "f": 3.5}
	if GetInt(m, "n") != 42 {
		t.Fatalf("GetInt mismatch")
	}
	if GetInt(m, "missing") != 0 {
		t.Fatalf("GetInt default mismatch")
	}
	if GetFloat(m, "f") != 3.5 {
		t.Fatalf("GetFloat mismatch")
	}
}

func TestContainsNull(t *testing.T) {
	if !ContainsNull("a\x00b") {
		t.Fatalf("expected null byte detected")
	}
	if ContainsNull("abc") {
		t.Fatalf("unexpected null byte detected")
	}
}
