package dispatch

import (
	"strconv"
	"strings"
)

// AppEventKind discriminates the App Event sum type emitted by the
// dispatcher toward the (external) application shell.
type AppEventKind int

const (
	_ AppEventKind = iota
	AppEventExitRequest
	AppEventResumeRequest
)

// AppEvent is emitted on ShutdownComplete (ExitRequest) and on a timeline
// selection or /resume slash command (ResumeRequest).
type AppEvent struct {
	Kind AppEventKind

	// AppEventResumeRequest
	Target string
	At     string
	Step   *int
	Prompt string
}

// ResumeRequestForSelection builds the resume-request app event a
// timeline selection emits (§4.H): the selected rollout path as target,
// the selected step index, no response id, and an empty prompt.
func ResumeRequestForSelection(path string, step int) AppEvent {
	s := step
	return AppEvent{
		Kind:   AppEventResumeRequest,
		Target: path,
		Step:   &s,
	}
}

// ParseResumeCommand parses a composer "/resume <target> [--at RID]
// [--step N] <prompt…>" slash command into a resume-request app event.
// ok is false when the line is not a /resume command or when the prompt
// is empty — an empty prompt is a rejected no-op (§6).
func ParseResumeCommand(line string) (AppEvent, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "/resume" {
		return AppEvent{}, false
	}

	ev := AppEvent{Kind: AppEventResumeRequest, Target: fields[1]}
	rest := fields[2:]
	var prompt []string
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--at":
			if i+1 >= len(rest) {
				return AppEvent{}, false
			}
			i++
			ev.At = rest[i]
		case "--step":
			if i+1 >= len(rest) {
				return AppEvent{}, false
			}
			i++
			n, err := strconv.Atoi(rest[i])
			if err != nil || n < 0 {
				return AppEvent{}, false
			}
			ev.Step = &n
		default:
			prompt = append(prompt, rest[i])
		}
	}
	ev.Prompt = strings.Join(prompt, " ")
	if ev.Prompt == "" {
		return AppEvent{}, false
	}
	return ev, true
}
