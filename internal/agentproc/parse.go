package agentproc

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/avllis/turnstream"
	"github.com/avllis/turnstream/internal/applog"
	"github.com/avllis/turnstream/internal/jsonutil"
	"github.com/avllis/turnstream/internal/textutil"
)

// decoder holds the per-subprocess state needed to translate Codex's
// exec --json event stream into turnstream.Event values: the captured
// thread id (for resume-per-turn and for the one-time SessionConfigured
// event) and a counter used to synthesize call ids for events that carry
// no call-id of their own in this wire format.
type decoder struct {
	threadID   string
	configured bool
	callSeq    int
	log        *applog.Logger
}

// logger is nil-safe so a zero-value decoder (as the tests build) still
// logs through the process-wide default.
func (d *decoder) logger() *applog.Logger {
	if d.log == nil {
		d.log = applog.Default()
	}
	return d.log
}

// nextCallID synthesizes a call id for item kinds that the exec --json
// format reports as a single post-hoc block rather than a begin/end
// pair with a stable id.
func (d *decoder) nextCallID() string {
	d.callSeq++
	return fmt.Sprintf("call-%d", d.callSeq)
}

// decodeLine translates one JSONL line into zero or more Events. The
// exec --json format reports most tool activity as a single completed
// block rather than codex-rs's native begin/delta/end triple, so this
// adapter synthesizes the begin+end pair the dispatcher's Exec/Tool
// Lifecycle Tracker (§4.G) expects — see DESIGN.md for the rationale.
func (d *decoder) decodeLine(line string) []turnstream.Event {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		d.logger().Debug("skipping non-JSON output line", zap.Error(err))
		return nil
	}
	typ := jsonutil.GetString(raw, "type")
	if typ == "" {
		return nil
	}

	switch typ {
	case "thread.started":
		return d.decodeThreadStarted(raw)
	case "turn.started":
		return []turnstream.Event{{Kind: turnstream.EventTaskStarted}}
	case "item.started":
		return nil
	case "item.completed":
		return d.decodeItemCompleted(raw)
	case "turn.completed":
		return d.decodeTurnCompleted(raw)
	case "turn.failed":
		return []turnstream.Event{{Kind: turnstream.EventTurnAborted, Message: turnFailedMessage(raw)}}
	case "error":
		return []turnstream.Event{{Kind: turnstream.EventError, Message: topLevelErrorMessage(raw)}}
	default:
		return nil
	}
}

func (d *decoder) decodeThreadStarted(raw map[string]any) []turnstream.Event {
	if d.configured {
		return nil
	}
	d.configured = true
	d.threadID = jsonutil.GetString(raw, "thread_id")
	return []turnstream.Event{{Kind: turnstream.EventSessionConfigured, SessionID: d.threadID}}
}

func (d *decoder) decodeItemCompleted(raw map[string]any) []turnstream.Event {
	item := jsonutil.GetMap(raw, "item")
	if item == nil {
		return nil
	}
	switch jsonutil.GetString(item, "type") {
	case "agent_message":
		return []turnstream.Event{{Kind: turnstream.EventAgentMessage, Text: jsonutil.GetString(item, "text")}}
	case "reasoning":
		text := jsonutil.GetString(item, "text")
		if text == "" {
			return []turnstream.Event{{Kind: turnstream.EventAgentReasoning}}
		}
		return []turnstream.Event{
			{Kind: turnstream.EventAgentReasoningDelta, Delta: text},
			{Kind: turnstream.EventAgentReasoning},
		}
	case "command_execution":
		return d.decodeCommandExecution(item)
	case "mcp_tool_call":
		return d.decodeMCPToolCall(item)
	case "error":
		return []turnstream.Event{{Kind: turnstream.EventError, Message: itemErrorMessage(item)}}
	case "file_changes", "web_search":
		return []turnstream.Event{{Kind: turnstream.EventBackgroundEvent, Raw: marshalItem(item)}}
	default:
		return nil
	}
}

func (d *decoder) decodeCommandExecution(item map[string]any) []turnstream.Event {
	callID := d.nextCallID()
	command := jsonutil.GetString(item, "command")
	d.logger().WithCallID(callID).Debug("synthesized exec begin/end pair",
		zap.String("command", command))
	return []turnstream.Event{
		{
			Kind:      turnstream.EventExecCommandBegin,
			CallID:    callID,
			Command:   []string{command},
			ParsedCmd: []string{command},
		},
		{
			Kind:     turnstream.EventExecCommandEnd,
			CallID:   callID,
			ExitCode: jsonutil.GetInt(item, "exit_code"),
			Stdout:   jsonutil.GetString(item, "aggregated_output"),
		},
	}
}

func (d *decoder) decodeMCPToolCall(item map[string]any) []turnstream.Event {
	callID := d.nextCallID()
	name := jsonutil.GetString(item, "tool_name")
	if name == "" {
		name = jsonutil.GetString(item, "name")
	}
	server := jsonutil.GetString(item, "server")
	d.logger().WithCallID(callID).Debug("synthesized tool-call begin/end pair",
		zap.String("server", server), zap.String("tool", name))
	invocation := &turnstream.McpInvocation{Server: server, Tool: name, Args: marshalItem(jsonutil.GetMap(item, "arguments"))}
	success := !jsonutil.GetBool(item, "error")
	return []turnstream.Event{
		{Kind: turnstream.EventMcpToolCallBegin, CallID: callID, Invocation: invocation},
		{
			Kind:       turnstream.EventMcpToolCallEnd,
			CallID:     callID,
			Invocation: invocation,
			Result:     &turnstream.McpToolResult{IsError: !success, Content: marshalItem(item)},
		},
	}
}

func (d *decoder) decodeTurnCompleted(raw map[string]any) []turnstream.Event {
	var events []turnstream.Event
	if usage := parseUsage(raw); usage != nil {
		events = append(events, turnstream.Event{Kind: turnstream.EventTokenCount, Usage: usage})
	}
	events = append(events, turnstream.Event{Kind: turnstream.EventTaskComplete})
	return events
}

func turnFailedMessage(raw map[string]any) string {
	errObj := jsonutil.GetMap(raw, "error")
	if errObj == nil {
		return "turn failed"
	}
	message := jsonutil.GetString(errObj, "message")
	if message == "" {
		message = "turn failed"
	}
	return textutil.Truncate(message)
}

func topLevelErrorMessage(raw map[string]any) string {
	message := jsonutil.GetString(raw, "message")
	if message == "" {
		message = "unknown error"
	}
	return textutil.Truncate(message)
}

func itemErrorMessage(item map[string]any) string {
	message := jsonutil.GetString(item, "message")
	if message == "" {
		message = jsonutil.GetString(item, "text")
	}
	if message == "" {
		message = "unknown error"
	}
	return textutil.Truncate(message)
}

// parseUsage extracts token usage from a turn.completed event at
// raw.usage.{input_tokens, cached_input_tokens, output_tokens}.
func parseUsage(raw map[string]any) *turnstream.TokenUsage {
	usage := jsonutil.GetMap(raw, "usage")
	if usage == nil {
		return nil
	}
	input := jsonutil.GetInt(usage, "input_tokens")
	output := jsonutil.GetInt(usage, "output_tokens")
	cached := jsonutil.GetInt(usage, "cached_input_tokens")
	if input == 0 && output == 0 && cached == 0 {
		return nil
	}
	u := &turnstream.TokenUsage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
	if cached > 0 {
		u.CachedInputTokens = &cached
	}
	return u
}

func marshalItem(item map[string]any) json.RawMessage {
	if item == nil {
		return nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return json.RawMessage(fmt.Sprintf(`"[marshal error: %v]"`, err))
	}
	return data
}
