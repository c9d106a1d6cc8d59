// Package stream implements the Streaming Controller: a finite state
// machine (Idle, Streaming, Finalizing) that buffers token deltas per
// kind (answer, reasoning) and commits complete lines to a sink at a
// throttled rate, finalizing with an optional trailing separator.
package stream

import "strings"

// BufferKind distinguishes the two independent stream buffers the
// controller owns.
type BufferKind int

const (
	Answer BufferKind = iota
	Reasoning
)

// State is one of the three FSM states described in §9.
type State int

const (
	Idle State = iota
	Streaming
	Finalizing
)

// Sink receives committed lines and separators. It is the History Sink's
// streaming-facing projection; insertion order is preserved by the
// caller, never reordered here.
type Sink interface {
	CommitLine(kind BufferKind, line string)
	EmitSeparator()
}

type buffer struct {
	text      string
	committed int // byte offset of the committed prefix
}

// nextLine returns the next complete line past the committed cursor, and
// whether one is available. A line is complete when a '\n' terminates it
// within the uncommitted tail.
func (b *buffer) nextLine() (string, bool) {
	tail := b.text[b.committed:]
	idx := strings.IndexByte(tail, '\n')
	if idx < 0 {
		return "", false
	}
	return tail[:idx], true
}

func (b *buffer) commitOne(kind BufferKind, sink Sink) bool {
	line, ok := b.nextLine()
	if !ok {
		return false
	}
	b.committed += len(line) + 1
	sink.CommitLine(kind, line)
	return true
}

// drainAll commits every complete line, then — if flushTail and a
// nonempty uncommitted tail remains — commits it too as a final partial
// line. Used by ApplyFinalAnswer and immediate Finalize drains.
func (b *buffer) drainAll(kind BufferKind, sink Sink, flushTail bool) {
	for b.commitOne(kind, sink) {
	}
	if flushTail {
		if tail := b.text[b.committed:]; tail != "" {
			b.committed = len(b.text)
			sink.CommitLine(kind, tail)
		}
	}
}

// Controller owns the two stream buffers and the write-cycle state
// machine described in §4.D and §9.
type Controller struct {
	state             State
	buffers           [2]buffer
	finalizeRequested bool
	withTrailingSep   bool
}

// New returns a Controller in the Idle state.
func New() *Controller {
	return &Controller{}
}

// Begin marks the write cycle active. Idempotent.
func (c *Controller) Begin() {
	if c.state == Idle {
		c.state = Streaming
	}
}

// PushAndMaybeCommit appends delta to the named buffer. Actual line
// commits are performed by OnCommitTick, which throttles to at most one
// line per call — this keeps the animation-tick policy in one place
// rather than splitting it between push and tick.
func (c *Controller) PushAndMaybeCommit(kind BufferKind, delta string) {
	c.Begin()
	c.buffers[kind].text += delta
}

// OnCommitTick commits at most one queued complete line to sink. It
// returns finished = true once the active buffer is fully drained and a
// finalize has been requested, transitioning the controller back to
// Idle.
func (c *Controller) OnCommitTick(kind BufferKind, sink Sink) bool {
	b := &c.buffers[kind]
	if b.commitOne(kind, sink) {
		return false
	}
	if c.state == Finalizing && c.finalizeRequested {
		return c.maybeFinish(kind, sink)
	}
	return false
}

func (c *Controller) maybeFinish(kind BufferKind, sink Sink) bool {
	b := &c.buffers[kind]
	if _, ok := b.nextLine(); ok {
		return false
	}
	if tail := b.text[b.committed:]; tail != "" {
		b.committed = len(b.text)
		sink.CommitLine(kind, tail)
	}
	if c.withTrailingSep {
		sink.EmitSeparator()
	}
	c.state = Idle
	c.finalizeRequested = false
	c.withTrailingSep = false
	return true
}

// ApplyFinalAnswer replaces the answer buffer's content with text
// (discarding any uncommitted partial), requests finalization, and
// drains every line — including a trailing partial line, since this is
// the terminal delivery for the turn. Lines already committed from
// deltas are not re-emitted: the committed cursor is repositioned past
// the same number of lines in the final text. Always returns
// finished = true.
func (c *Controller) ApplyFinalAnswer(text string, sink Sink) bool {
	c.state = Finalizing
	c.finalizeRequested = true
	b := &c.buffers[Answer]
	// Every commit advances the cursor past exactly one '\n', so the
	// newline count of the committed prefix is the committed line count.
	committedLines := strings.Count(b.text[:b.committed], "\n")
	b.text = text
	b.committed = offsetAfterLines(text, committedLines)
	b.drainAll(Answer, sink, true)
	c.state = Idle
	c.finalizeRequested = false
	return true
}

// offsetAfterLines returns the byte offset just past the n-th newline of
// text, or len(text) when fewer than n newlines exist.
func offsetAfterLines(text string, n int) int {
	off := 0
	for i := 0; i < n; i++ {
		idx := strings.IndexByte(text[off:], '\n')
		if idx < 0 {
			return len(text)
		}
		off += idx + 1
	}
	return off
}

// Finalize requests finalization of kind's buffer. If the buffer is
// already fully committed, it finishes immediately (emitting the
// trailing separator when requested) and returns true; otherwise the
// caller must keep invoking OnCommitTick until it returns true.
func (c *Controller) Finalize(kind BufferKind, withTrailingSeparator bool, sink Sink) bool {
	c.state = Finalizing
	c.finalizeRequested = true
	c.withTrailingSep = withTrailingSeparator
	return c.maybeFinish(kind, sink)
}

// FlushNow immediately drains every remaining line in kind's buffer,
// including a trailing partial line, and resets the controller to Idle.
// Used when an interrupting cell (an exec boundary, a tool call, an
// approval prompt) must not be allowed to split an in-progress streamed
// line — the dispatcher calls this instead of waiting for further
// OnCommitTick calls.
func (c *Controller) FlushNow(kind BufferKind, withSeparator bool, sink Sink) {
	b := &c.buffers[kind]
	b.drainAll(kind, sink, true)
	if withSeparator {
		sink.EmitSeparator()
	}
	c.state = Idle
	c.finalizeRequested = false
	c.withTrailingSep = false
}

// ResetHeadersForNewTurn clears nothing on the controller itself — header
// de-duplication is owned by the dispatcher's reasoning accumulator (see
// dispatch package) — but is kept here as a named operation so callers
// have one place to signal "a new turn started" regardless of which
// component ultimately owns the header state.
func (c *Controller) ResetHeadersForNewTurn() {}

// ClearAll hard-resets the controller to Idle, discarding all buffered
// and committed state. Used on error or interrupt.
func (c *Controller) ClearAll() {
	c.state = Idle
	c.buffers = [2]buffer{}
	c.finalizeRequested = false
	c.withTrailingSep = false
}

// StateFor reports the controller's current FSM state.
func (c *Controller) StateFor() State {
	return c.state
}
