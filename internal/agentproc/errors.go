package agentproc

import "errors"

// Sentinel errors for subprocess lifecycle operations, checked with
// errors.Is.
var (
	// ErrUnavailable indicates the codex binary could not be located on
	// PATH.
	ErrUnavailable = errors.New("agentproc: binary unavailable")

	// ErrTerminated indicates the session was terminated by Stop: Send
	// returns it once Stop has been called, and Stop/Wait report it for
	// a subprocess that ended after Stop began.
	ErrTerminated = errors.New("agentproc: session terminated")

	// ErrNoThreadID indicates Send was called before the first
	// thread.started event arrived (or was never captured), so the
	// resume-per-turn command cannot be built.
	ErrNoThreadID = errors.New("agentproc: no thread id captured yet")
)
