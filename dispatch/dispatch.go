// Package dispatch implements the Event Dispatcher (§4.F) and the
// Exec/Tool Lifecycle Tracker (§4.G): typed event routing with per-turn
// state ownership, a coalesced single redraw request per dispatched
// event, and call-id-keyed tracking of in-flight exec and tool
// invocations.
package dispatch

import (
	"go.uber.org/zap"

	"github.com/avllis/turnstream"
	"github.com/avllis/turnstream/interrupt"
	"github.com/avllis/turnstream/stream"
)

// HistorySink is the provided append-only projection of dispatched
// events. Insertion order is preserved; the dispatcher never reads it
// back.
type HistorySink interface {
	Insert(cell turnstream.HistoryCell)
}

// Redrawer receives the dispatcher's coalesced redraw request. At most
// one call is made per Dispatch invocation (invariant 6).
type Redrawer interface {
	RequestRedraw()
}

// RunningCommand tracks an in-flight exec invocation keyed by call id
// (§3).
type RunningCommand struct {
	Command   []string
	ParsedCmd []string
}

// handledKinds enumerates every EventKind this dispatcher routes,
// checked against turnstream.AllEventKinds() by the exhaustiveness test —
// the nearest idiomatic-Go stand-in for a sum type's compiler-enforced
// exhaustiveness check (§9).
var handledKinds = map[turnstream.EventKind]bool{
	turnstream.EventSessionConfigured:             true,
	turnstream.EventAgentMessage:                  true,
	turnstream.EventAgentMessageDelta:             true,
	turnstream.EventAgentReasoning:                true,
	turnstream.EventAgentReasoningDelta:           true,
	turnstream.EventAgentReasoningSectionBreak:    true,
	turnstream.EventAgentReasoningRawContent:      true,
	turnstream.EventAgentReasoningRawContentDelta: true,
	turnstream.EventTaskStarted:                   true,
	turnstream.EventTaskComplete:                  true,
	turnstream.EventTokenCount:                    true,
	turnstream.EventError:                         true,
	turnstream.EventTurnAborted:                   true,
	turnstream.EventPlanUpdate:                    true,
	turnstream.EventExecApprovalRequest:           true,
	turnstream.EventApplyPatchApprovalRequest:     true,
	turnstream.EventExecCommandBegin:              true,
	turnstream.EventExecCommandOutputDelta:        true,
	turnstream.EventExecCommandEnd:                true,
	turnstream.EventPatchApplyBegin:               true,
	turnstream.EventPatchApplyEnd:                 true,
	turnstream.EventMcpToolCallBegin:              true,
	turnstream.EventMcpToolCallEnd:                true,
	turnstream.EventGetHistoryEntryResponse:       true,
	turnstream.EventMcpListToolsResponse:          true,
	turnstream.EventShutdownComplete:              true,
	turnstream.EventTurnDiff:                      true,
	turnstream.EventBackgroundEvent:               true,
}

// Dispatcher owns all per-turn state: the streaming controller, the
// running-commands table, pending exec completions, the interrupt queue,
// and the reasoning accumulators. It is not safe for concurrent use —
// the single-threaded cooperative scheduling model in §5 serializes all
// calls through one goroutine.
type Dispatcher struct {
	log      *zap.SugaredLogger
	sink     HistorySink
	ops      chan<- turnstream.Op
	redrawer Redrawer

	stream    *stream.Controller
	answerSnk stream.Sink
	interrupt interrupt.Queue

	runningCommands    map[string]RunningCommand
	activeExecCell     *execBeginCell
	pendingCompletions []execCompletion

	approvalQueue []turnstream.ApprovalRequest

	sessionID           string
	taskRunning         bool
	taskCompletePending bool
	ctrlCHintArmed      bool

	reasoningAccum     string
	fullReasoningAccum string
	statusHeader       string

	totalUsage *turnstream.TokenUsage
	lastUsage  *turnstream.TokenUsage

	pendingInitialPrompt string

	needsRedraw bool

	lastAppEvent AppEvent
	hasAppEvent  bool
}

// New builds a Dispatcher. ops is the outbound channel toward the Agent
// Producer; sink is the History Sink; redrawer may be nil (no-op
// redraws, useful in tests); log may be nil, in which case a no-op
// logger is used.
func New(ops chan<- turnstream.Op, sink HistorySink, redrawer Redrawer, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	d := &Dispatcher{
		log:             log,
		sink:            sink,
		ops:             ops,
		redrawer:        redrawer,
		stream:          stream.New(),
		runningCommands: make(map[string]RunningCommand),
	}
	d.answerSnk = answerSink{d: d}
	return d
}

// QueueInitialPrompt arranges for text to be sent as the first UserInput
// op once SessionConfigured arrives.
func (d *Dispatcher) QueueInitialPrompt(text string) {
	d.pendingInitialPrompt = text
}

// TotalUsage returns the running token-usage total, or nil if no
// TokenCount event has been seen yet.
func (d *Dispatcher) TotalUsage() *turnstream.TokenUsage {
	return d.totalUsage
}

// LastUsage returns the most recent turn's token usage, or nil before
// the first TokenCount event. The composer footer renders from this.
func (d *Dispatcher) LastUsage() *turnstream.TokenUsage {
	return d.lastUsage
}

// ClearTokenUsage resets the running total, matching the original's
// /status-adjacent clear action (supplemented feature, see SPEC_FULL.md).
func (d *Dispatcher) ClearTokenUsage() {
	d.totalUsage = nil
	d.lastUsage = nil
}

// SessionSummary returns a status cell summarizing the session id and
// cumulative token usage (supplemented feature).
func (d *Dispatcher) SessionSummary() turnstream.HistoryCell {
	usage := turnstream.TokenUsage{}
	if d.totalUsage != nil {
		usage = *d.totalUsage
	}
	return statusSummaryCell{SessionID: d.sessionID, Usage: usage}
}

// RequestMcpTools asks the producer to list its MCP tools. When no MCP
// servers are configured there is nothing to list — an empty listing
// cell is inserted directly instead of issuing the op (supplemented
// feature, see SPEC_FULL.md).
func (d *Dispatcher) RequestMcpTools(serversConfigured bool) {
	if !serversConfigured {
		d.sink.Insert(mcpListToolsCell{})
		return
	}
	d.emitOp(turnstream.Op{Kind: turnstream.OpListMcpTools})
}

// ApprovalQueue returns the composer's pending approval requests.
func (d *Dispatcher) ApprovalQueue() []turnstream.ApprovalRequest {
	return d.approvalQueue
}

func (d *Dispatcher) markRedraw() {
	d.needsRedraw = true
}

func (d *Dispatcher) emitOp(op turnstream.Op) {
	if d.ops == nil {
		return
	}
	d.ops <- op
}

// answerSink adapts the dispatcher's History Sink to stream.Sink for the
// answer buffer.
type answerSink struct{ d *Dispatcher }

func (a answerSink) CommitLine(_ stream.BufferKind, line string) {
	a.d.sink.Insert(answerLineCell{Line: line})
}

func (a answerSink) EmitSeparator() {
	a.d.sink.Insert(separatorCell{})
}

// OnCommitTick is the animation-tick entry point, invoked by the
// application shell's frame timer. It commits at most one queued line of
// the answer stream; when the drain completes a requested finalization,
// the interrupt queue is flushed and a pending TaskComplete is applied,
// mirroring the finalize path in handleAgentMessage.
func (d *Dispatcher) OnCommitTick() {
	if d.stream.StateFor() == stream.Idle {
		return
	}
	if finished := d.stream.OnCommitTick(stream.Answer, d.answerSnk); finished {
		d.drainInterruptQueue()
		if d.taskCompletePending {
			d.taskRunning = false
			d.taskCompletePending = false
		}
	}
	if d.redrawer != nil {
		d.redrawer.RequestRedraw()
	}
}

// Dispatch routes a single inbound event: it resets the redraw flag,
// routes to the appropriate handler, and issues at most one coalesced
// redraw request (invariant 6).
func (d *Dispatcher) Dispatch(ev turnstream.Event) {
	d.needsRedraw = false
	d.log.Debugw("handle event", "kind", ev.Kind.String(), "id", ev.ID)
	d.route(ev)
	if d.needsRedraw && d.redrawer != nil {
		d.redrawer.RequestRedraw()
	}
}

func (d *Dispatcher) route(ev turnstream.Event) {
	switch ev.Kind {
	case turnstream.EventSessionConfigured:
		d.handleSessionConfigured(ev)
	case turnstream.EventAgentMessage:
		d.handleAgentMessage(ev)
	case turnstream.EventAgentMessageDelta:
		d.handleAgentMessageDelta(ev)
	case turnstream.EventAgentReasoning, turnstream.EventAgentReasoningRawContent:
		d.handleAgentReasoningFinal(ev)
	case turnstream.EventAgentReasoningDelta, turnstream.EventAgentReasoningRawContentDelta:
		d.handleAgentReasoningDelta(ev)
	case turnstream.EventAgentReasoningSectionBreak:
		d.handleAgentReasoningSectionBreak(ev)
	case turnstream.EventTaskStarted:
		d.handleTaskStarted(ev)
	case turnstream.EventTaskComplete:
		d.handleTaskComplete(ev)
	case turnstream.EventTokenCount:
		d.handleTokenCount(ev)
	case turnstream.EventError, turnstream.EventTurnAborted:
		d.handleError(ev)
	case turnstream.EventExecCommandBegin, turnstream.EventExecCommandEnd,
		turnstream.EventPatchApplyEnd, turnstream.EventMcpToolCallBegin,
		turnstream.EventMcpToolCallEnd, turnstream.EventExecApprovalRequest,
		turnstream.EventApplyPatchApprovalRequest:
		d.handleDeferrable(ev)
	case turnstream.EventPatchApplyBegin:
		d.markRedraw()
	case turnstream.EventExecCommandOutputDelta:
		d.markRedraw()
	case turnstream.EventShutdownComplete:
		d.handleShutdownComplete(ev)
	case turnstream.EventMcpListToolsResponse:
		d.sink.Insert(mcpListToolsCell{raw: ev.Raw})
		d.markRedraw()
	case turnstream.EventPlanUpdate, turnstream.EventTurnDiff,
		turnstream.EventBackgroundEvent, turnstream.EventGetHistoryEntryResponse:
		d.markRedraw()
	default:
		d.log.Warnw("dispatch: unrouted event kind", "kind", ev.Kind)
	}
}

func (d *Dispatcher) handleSessionConfigured(ev turnstream.Event) {
	d.sessionID = ev.SessionID
	d.log = d.log.With("session_id", ev.SessionID)
	d.log.Infow("session configured",
		"history_log_id", ev.HistoryLogID,
		"history_entry_count", ev.HistoryEntryCount)
	d.sink.Insert(sessionInfoCell{
		SessionID:         ev.SessionID,
		HistoryLogID:      ev.HistoryLogID,
		HistoryEntryCount: ev.HistoryEntryCount,
	})
	d.markRedraw()
	if d.pendingInitialPrompt != "" {
		d.emitOp(turnstream.Op{Kind: turnstream.OpUserInput, Items: []string{d.pendingInitialPrompt}})
		d.pendingInitialPrompt = ""
	}
}

func (d *Dispatcher) handleAgentMessageDelta(ev turnstream.Event) {
	d.stream.PushAndMaybeCommit(stream.Answer, ev.Delta)
	d.stream.OnCommitTick(stream.Answer, d.answerSnk)
	d.markRedraw()
}

func (d *Dispatcher) handleAgentMessage(ev turnstream.Event) {
	finished := d.stream.ApplyFinalAnswer(ev.Text, d.answerSnk)
	if finished {
		d.drainInterruptQueue()
		if d.taskCompletePending {
			d.taskRunning = false
			d.taskCompletePending = false
		}
	}
	d.markRedraw()
}

func (d *Dispatcher) handleAgentReasoningDelta(ev turnstream.Event) {
	d.reasoningAccum += ev.Delta
	if header, ok := extractFirstBold(d.reasoningAccum); ok {
		d.statusHeader = header
	}
	d.markRedraw()
}

func (d *Dispatcher) handleAgentReasoningFinal(ev turnstream.Event) {
	_ = ev
	d.fullReasoningAccum += d.reasoningAccum
	if d.fullReasoningAccum != "" {
		d.sink.Insert(reasoningBlockCell{Text: d.fullReasoningAccum})
	}
	d.reasoningAccum = ""
	d.fullReasoningAccum = ""
	d.markRedraw()
}

func (d *Dispatcher) handleAgentReasoningSectionBreak(ev turnstream.Event) {
	_ = ev
	d.fullReasoningAccum += d.reasoningAccum + "\n\n"
	d.reasoningAccum = ""
	d.markRedraw()
}

func (d *Dispatcher) handleTaskStarted(ev turnstream.Event) {
	_ = ev
	d.log.Infow("task started")
	d.ctrlCHintArmed = false
	d.taskRunning = true
	d.stream.ResetHeadersForNewTurn()
	d.statusHeader = ""
	d.reasoningAccum = ""
	d.fullReasoningAccum = ""
	d.markRedraw()
}

func (d *Dispatcher) handleTaskComplete(ev turnstream.Event) {
	_ = ev
	d.log.Infow("task complete")
	if d.stream.StateFor() != stream.Idle {
		d.taskCompletePending = true
		if finished := d.stream.Finalize(stream.Answer, true, d.answerSnk); finished {
			d.drainInterruptQueue()
			d.taskRunning = false
			d.taskCompletePending = false
		}
	} else {
		d.taskRunning = false
	}
	d.runningCommands = make(map[string]RunningCommand)
	d.markRedraw()
}

func (d *Dispatcher) handleTokenCount(ev turnstream.Event) {
	if ev.Usage != nil {
		if d.totalUsage == nil {
			u := *ev.Usage
			d.totalUsage = &u
		} else {
			sum := d.totalUsage.Add(*ev.Usage)
			d.totalUsage = &sum
		}
		d.lastUsage = ev.Usage
	}
	d.markRedraw()
}

func (d *Dispatcher) handleError(ev turnstream.Event) {
	d.log.Errorw("turn failed", "message", ev.Message)
	d.sink.Insert(errorCell{Message: ev.Message})
	d.taskRunning = false
	d.runningCommands = make(map[string]RunningCommand)
	d.stream.ClearAll()
	d.reasoningAccum = ""
	d.fullReasoningAccum = ""
	d.markRedraw()
}

func (d *Dispatcher) handleShutdownComplete(ev turnstream.Event) {
	_ = ev
	d.lastAppEvent = AppEvent{Kind: AppEventExitRequest}
	d.hasAppEvent = true
}

// handleDeferrable implements rule DEFER-OR-HANDLE for the seven
// deferrable event kinds (§4.E).
func (d *Dispatcher) handleDeferrable(ev turnstream.Event) {
	writeCycleActive := d.stream.StateFor() != stream.Idle
	if d.interrupt.ShouldDefer(writeCycleActive) {
		d.interrupt.Enqueue(ev)
		d.markRedraw()
		return
	}
	d.handleNow(ev)
}

func (d *Dispatcher) drainInterruptQueue() {
	for _, ev := range d.interrupt.Drain() {
		d.handleNow(ev)
	}
}

func (d *Dispatcher) handleNow(ev turnstream.Event) {
	switch ev.Kind {
	case turnstream.EventExecCommandBegin:
		d.handleExecBeginNow(ev)
	case turnstream.EventExecCommandEnd:
		d.handleExecEndNow(ev)
	case turnstream.EventPatchApplyEnd:
		d.handlePatchApplyEndNow(ev)
	case turnstream.EventMcpToolCallBegin:
		d.handleMcpBeginNow(ev)
	case turnstream.EventMcpToolCallEnd:
		d.handleMcpEndNow(ev)
	case turnstream.EventExecApprovalRequest:
		d.handleExecApprovalNow(ev)
	case turnstream.EventApplyPatchApprovalRequest:
		d.handleApplyPatchApprovalNow(ev)
	}
	d.markRedraw()
}

func (d *Dispatcher) handleExecBeginNow(ev turnstream.Event) {
	d.runningCommands[ev.CallID] = RunningCommand{Command: ev.Command, ParsedCmd: ev.ParsedCmd}
	if d.activeExecCell == nil {
		d.activeExecCell = &execBeginCell{}
	}
	d.activeExecCell.commands = append(d.activeExecCell.commands, d.runningCommands[ev.CallID])
}

func (d *Dispatcher) handleExecEndNow(ev turnstream.Event) {
	rc, ok := d.runningCommands[ev.CallID]
	if !ok {
		rc = RunningCommand{Command: []string{ev.CallID}}
	}
	delete(d.runningCommands, ev.CallID)

	d.pendingCompletions = append(d.pendingCompletions, execCompletion{
		Command:  rc.Command,
		Parsed:   rc.ParsedCmd,
		ExitCode: ev.ExitCode,
		Stdout:   ev.Stdout,
		Stderr:   ev.Stderr,
	})

	if len(d.runningCommands) == 0 {
		d.activeExecCell = nil
		for _, c := range d.pendingCompletions {
			d.sink.Insert(execCompletedCell{completion: c})
		}
		d.pendingCompletions = nil
	}
}

func (d *Dispatcher) handlePatchApplyEndNow(ev turnstream.Event) {
	if ev.Success {
		d.sink.Insert(patchCell{success: true, output: ev.Stdout})
	} else {
		d.sink.Insert(patchCell{success: false, output: ev.Stderr})
	}
}

func (d *Dispatcher) flushAnswerWithSeparator() {
	if d.stream.StateFor() != stream.Idle {
		d.stream.FlushNow(stream.Answer, true, d.answerSnk)
	}
}

func (d *Dispatcher) handleMcpBeginNow(ev turnstream.Event) {
	d.flushAnswerWithSeparator()
	d.sink.Insert(mcpActiveCell{invocation: ev.Invocation})
}

func (d *Dispatcher) handleMcpEndNow(ev turnstream.Event) {
	d.flushAnswerWithSeparator()
	success := ev.Result != nil && !ev.Result.IsError
	d.sink.Insert(mcpCompletedCell{
		invocation: ev.Invocation,
		duration:   ev.Duration,
		success:    success,
		result:     ev.Result,
	})
}

func (d *Dispatcher) handleExecApprovalNow(ev turnstream.Event) {
	d.flushAnswerWithSeparator()
	d.approvalQueue = append(d.approvalQueue, turnstream.ApprovalRequest{
		Kind: turnstream.ApprovalExec, CallID: ev.CallID, Raw: ev.Raw,
	})
}

func (d *Dispatcher) handleApplyPatchApprovalNow(ev turnstream.Event) {
	d.flushAnswerWithSeparator()
	d.approvalQueue = append(d.approvalQueue, turnstream.ApprovalRequest{
		Kind: turnstream.ApprovalApplyPatch, CallID: ev.CallID, Raw: ev.Raw,
	})
}

// HandleCtrlC implements the cancellation policy of §5 plus the
// supplemented ctrl-c quit-hint window (SPEC_FULL.md): while a task is
// running, the first ctrl-c interrupts it; while idle, a first ctrl-c
// arms a hint and a second within the window requests shutdown.
func (d *Dispatcher) HandleCtrlC() {
	if d.taskRunning {
		d.activeExecCell = nil
		d.runningCommands = make(map[string]RunningCommand)
		d.pendingCompletions = nil
		d.emitOp(turnstream.Op{Kind: turnstream.OpInterrupt})
		d.taskRunning = false
		d.stream.ClearAll()
		if d.redrawer != nil {
			d.redrawer.RequestRedraw()
		}
		return
	}
	if d.ctrlCHintArmed {
		d.emitOp(turnstream.Op{Kind: turnstream.OpShutdown})
		d.ctrlCHintArmed = false
		return
	}
	d.ctrlCHintArmed = true
}

// PopAppEvent returns and clears the most recent App Event emitted by a
// handler (currently only ShutdownComplete), if any.
func (d *Dispatcher) PopAppEvent() (AppEvent, bool) {
	if !d.hasAppEvent {
		return AppEvent{}, false
	}
	ev := d.lastAppEvent
	d.hasAppEvent = false
	return ev, true
}
