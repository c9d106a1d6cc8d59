package turnstream

import (
	"encoding/json"
	"time"
)

// EventKind discriminates the variants of Event. The zero value is never a
// valid emitted event.
type EventKind int

const (
	_ EventKind = iota
	EventSessionConfigured
	EventAgentMessage
	EventAgentMessageDelta
	EventAgentReasoning
	EventAgentReasoningDelta
	EventAgentReasoningSectionBreak
	// EventAgentReasoningRawContent and EventAgentReasoningRawContentDelta
	// are treated identically to their summarized counterparts by every
	// handler in this package; they exist as distinct kinds only because
	// the producer wire protocol distinguishes them.
	EventAgentReasoningRawContent
	EventAgentReasoningRawContentDelta
	EventTaskStarted
	EventTaskComplete
	EventTokenCount
	EventError
	EventTurnAborted
	EventPlanUpdate
	EventExecApprovalRequest
	EventApplyPatchApprovalRequest
	EventExecCommandBegin
	EventExecCommandOutputDelta
	EventExecCommandEnd
	EventPatchApplyBegin
	EventPatchApplyEnd
	EventMcpToolCallBegin
	EventMcpToolCallEnd
	EventGetHistoryEntryResponse
	EventMcpListToolsResponse
	EventShutdownComplete
	EventTurnDiff
	EventBackgroundEvent
)

var eventKindNames = map[EventKind]string{
	EventSessionConfigured:             "session_configured",
	EventAgentMessage:                  "agent_message",
	EventAgentMessageDelta:             "agent_message_delta",
	EventAgentReasoning:                "agent_reasoning",
	EventAgentReasoningDelta:           "agent_reasoning_delta",
	EventAgentReasoningSectionBreak:    "agent_reasoning_section_break",
	EventAgentReasoningRawContent:      "agent_reasoning_raw_content",
	EventAgentReasoningRawContentDelta: "agent_reasoning_raw_content_delta",
	EventTaskStarted:                   "task_started",
	EventTaskComplete:                  "task_complete",
	EventTokenCount:                    "token_count",
	EventError:                         "error",
	EventTurnAborted:                   "turn_aborted",
	EventPlanUpdate:                    "plan_update",
	EventExecApprovalRequest:           "exec_approval_request",
	EventApplyPatchApprovalRequest:     "apply_patch_approval_request",
	EventExecCommandBegin:              "exec_command_begin",
	EventExecCommandOutputDelta:        "exec_command_output_delta",
	EventExecCommandEnd:                "exec_command_end",
	EventPatchApplyBegin:               "patch_apply_begin",
	EventPatchApplyEnd:                 "patch_apply_end",
	EventMcpToolCallBegin:              "mcp_tool_call_begin",
	EventMcpToolCallEnd:                "mcp_tool_call_end",
	EventGetHistoryEntryResponse:       "get_history_entry_response",
	EventMcpListToolsResponse:          "mcp_list_tools_response",
	EventShutdownComplete:              "shutdown_complete",
	EventTurnDiff:                      "turn_diff",
	EventBackgroundEvent:               "background_event",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// AllEventKinds returns every defined EventKind, used by the dispatcher's
// exhaustiveness test to guarantee a routing-table entry exists for each.
func AllEventKinds() []EventKind {
	kinds := make([]EventKind, 0, len(eventKindNames))
	for k := range eventKindNames {
		kinds = append(kinds, k)
	}
	return kinds
}

// McpInvocation identifies a single MCP tool call.
type McpInvocation struct {
	Server string
	Tool   string
	Args   json.RawMessage
}

// McpToolResult is the outcome payload of a completed MCP tool call.
type McpToolResult struct {
	IsError bool
	Content json.RawMessage
}

// Event is produced by the Agent Producer. It is a closed sum type
// implemented as a single struct gated by Kind; only the fields relevant to
// Kind are populated. Every event carries a turn-local ID.
type Event struct {
	ID   string
	Kind EventKind

	// EventSessionConfigured
	SessionID         string
	HistoryLogID      int64
	HistoryEntryCount int

	// EventAgentMessage, EventAgentReasoning (final text)
	Text string

	// EventAgentMessageDelta, EventAgentReasoningDelta,
	// EventAgentReasoningRawContentDelta
	Delta string

	// EventTokenCount
	Usage *TokenUsage

	// EventError, EventTurnAborted
	Message string

	// EventExecCommandBegin, EventExecCommandEnd, EventExecCommandOutputDelta
	CallID    string
	Command   []string
	ParsedCmd []string
	ExitCode  int
	Stdout    string
	Stderr    string

	// EventPatchApplyEnd
	Success bool

	// EventMcpToolCallBegin, EventMcpToolCallEnd
	Invocation *McpInvocation
	Duration   time.Duration
	Result     *McpToolResult

	// Raw carries the producer-specific payload for events this package
	// does not decompose field-by-field (PlanUpdate, TurnDiff,
	// BackgroundEvent, GetHistoryEntryResponse, McpListToolsResponse).
	Raw json.RawMessage
}

// TokenUsage mirrors the usage accounting emitted alongside TokenCount
// events. Optional fields sum when both present, carry when one side is
// present, and remain absent when both are absent.
type TokenUsage struct {
	InputTokens           int
	CachedInputTokens     *int
	OutputTokens          int
	ReasoningOutputTokens *int
	TotalTokens           int
}

// Add returns the sum of u and other under the addition law in §3: count
// fields sum unconditionally; optional fields sum when both present, carry
// when only one side is present, and stay nil when both are absent.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:           u.InputTokens + other.InputTokens,
		OutputTokens:          u.OutputTokens + other.OutputTokens,
		TotalTokens:           u.TotalTokens + other.TotalTokens,
		CachedInputTokens:     addOptional(u.CachedInputTokens, other.CachedInputTokens),
		ReasoningOutputTokens: addOptional(u.ReasoningOutputTokens, other.ReasoningOutputTokens),
	}
}

func addOptional(a, b *int) *int {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v := *b
		return &v
	case b == nil:
		v := *a
		return &v
	default:
		v := *a + *b
		return &v
	}
}

// CellKind discriminates the renderable shape of a HistoryCell.
type CellKind int

const (
	_ CellKind = iota
	CellSessionInfo
	CellAnswerLine
	CellReasoningBlock
	CellExecBegin
	CellExecCompleted
	CellPatchSuccess
	CellPatchFailure
	CellMcpActive
	CellMcpCompleted
	CellMcpListTools
	CellError
	CellStatusSummary
)

// HistoryCell is the opaque renderable content appended to the History
// Sink. Terminal rendering itself is out of this core's scope; this
// interface exists only so tests can assert on cell kinds without a real
// renderer.
type HistoryCell interface {
	Kind() CellKind
	String() string
}

// ApprovalKind distinguishes the two approval request flavors.
type ApprovalKind int

const (
	_ ApprovalKind = iota
	ApprovalExec
	ApprovalApplyPatch
)

// ApprovalRequest is queued onto the composer's approval queue by the exec
// and apply-patch approval handlers.
type ApprovalRequest struct {
	Kind   ApprovalKind
	CallID string
	Raw    json.RawMessage
}
