// Package interrupt implements the Interrupt Queue: a FIFO of deferred
// event handling used to preserve causal ordering (ExecCommandBegin
// before its matching ExecCommandEnd) while the streaming controller is
// mid write-cycle.
package interrupt

import "github.com/avllis/turnstream"

// deferrableKinds are the event kinds that may be deferred past an
// active write cycle (§4.E). Everything else — streaming deltas,
// lifecycle events, informational events — is never deferred.
var deferrableKinds = map[turnstream.EventKind]bool{
	turnstream.EventExecCommandBegin:          true,
	turnstream.EventExecCommandEnd:            true,
	turnstream.EventPatchApplyEnd:             true,
	turnstream.EventMcpToolCallBegin:          true,
	turnstream.EventMcpToolCallEnd:            true,
	turnstream.EventExecApprovalRequest:       true,
	turnstream.EventApplyPatchApprovalRequest: true,
}

// IsDeferrable reports whether kind may ever be queued.
func IsDeferrable(kind turnstream.EventKind) bool {
	return deferrableKinds[kind]
}

// Queue is a FIFO of deferred events. It is not safe for concurrent use;
// callers serialize access through the single-threaded dispatcher loop
// per §5.
type Queue struct {
	items []turnstream.Event
}

// Empty reports whether the queue currently holds any deferred events.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// ShouldDefer implements rule DEFER-OR-HANDLE: a deferrable event must be
// enqueued, rather than handled inline, whenever the write cycle is
// active or the queue is already non-empty — even if the write cycle
// ends before the queue is drained.
func (q *Queue) ShouldDefer(writeCycleActive bool) bool {
	return writeCycleActive || !q.Empty()
}

// Enqueue appends ev to the tail of the queue.
func (q *Queue) Enqueue(ev turnstream.Event) {
	q.items = append(q.items, ev)
}

// Drain removes and returns every queued event in FIFO order, leaving the
// queue empty.
func (q *Queue) Drain() []turnstream.Event {
	items := q.items
	q.items = nil
	return items
}

// Len reports the number of currently queued events.
func (q *Queue) Len() int {
	return len(q.items)
}
