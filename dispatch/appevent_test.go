package dispatch

import "testing"

func TestParseResumeCommand(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		ok     bool
		target string
		at     string
		step   int // -1 when unset
		prompt string
	}{
		{"plain", "/resume sess1 continue where we left off", true, "sess1", "", -1, "continue where we left off"},
		{"with at", "/resume sess1 --at resp_9 keep going", true, "sess1", "resp_9", -1, "keep going"},
		{"with step", "/resume sess1 --step 2 keep going", true, "sess1", "", 2, "keep going"},
		{"empty prompt rejected", "/resume sess1 --step 2", false, "", "", -1, ""},
		{"no target", "/resume", false, "", "", -1, ""},
		{"not a resume", "/status", false, "", "", -1, ""},
		{"bad step", "/resume sess1 --step two go", false, "", "", -1, ""},
		{"dangling at", "/resume sess1 go --at", false, "", "", -1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ParseResumeCommand(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if ev.Kind != AppEventResumeRequest {
				t.Fatalf("kind = %v, want resume request", ev.Kind)
			}
			if ev.Target != tt.target || ev.At != tt.at || ev.Prompt != tt.prompt {
				t.Fatalf("got %+v, want target=%q at=%q prompt=%q", ev, tt.target, tt.at, tt.prompt)
			}
			if tt.step < 0 && ev.Step != nil {
				t.Fatalf("expected no step, got %d", *ev.Step)
			}
			if tt.step >= 0 && (ev.Step == nil || *ev.Step != tt.step) {
				t.Fatalf("step = %v, want %d", ev.Step, tt.step)
			}
		})
	}
}

func TestResumeRequestForSelection(t *testing.T) {
	ev := ResumeRequestForSelection("/home/u/.turnstream/sessions/rollout-2024-01-02T03-04-05-abc.jsonl", 2)
	if ev.Kind != AppEventResumeRequest {
		t.Fatalf("kind = %v, want resume request", ev.Kind)
	}
	if ev.At != "" || ev.Prompt != "" {
		t.Fatalf("selection must carry no response id and an empty prompt, got %+v", ev)
	}
	if ev.Step == nil || *ev.Step != 2 {
		t.Fatalf("step = %v, want 2", ev.Step)
	}
}
