package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/avllis/turnstream"
)

type sessionInfoCell struct {
	SessionID         string
	HistoryLogID      int64
	HistoryEntryCount int
}

func (c sessionInfoCell) Kind() turnstream.CellKind { return turnstream.CellSessionInfo }
func (c sessionInfoCell) String() string {
	return fmt.Sprintf("session %s (log %d, %d entries)", c.SessionID, c.HistoryLogID, c.HistoryEntryCount)
}

type answerLineCell struct {
	Line string
}

func (c answerLineCell) Kind() turnstream.CellKind { return turnstream.CellAnswerLine }
func (c answerLineCell) String() string            { return c.Line }

type separatorCell struct{}

func (c separatorCell) Kind() turnstream.CellKind { return turnstream.CellAnswerLine }
func (c separatorCell) String() string            { return "" }

type reasoningBlockCell struct {
	Text string
}

func (c reasoningBlockCell) Kind() turnstream.CellKind { return turnstream.CellReasoningBlock }
func (c reasoningBlockCell) String() string            { return c.Text }

type execBeginCell struct {
	commands []RunningCommand
}

func (c *execBeginCell) Kind() turnstream.CellKind { return turnstream.CellExecBegin }
func (c *execBeginCell) String() string {
	parts := make([]string, 0, len(c.commands))
	for _, rc := range c.commands {
		parts = append(parts, strings.Join(rc.Command, " "))
	}
	return strings.Join(parts, "; ")
}

type execCompletion struct {
	Command  []string
	Parsed   []string
	ExitCode int
	Stdout   string
	Stderr   string
}

type execCompletedCell struct {
	completion execCompletion
}

func (c execCompletedCell) Kind() turnstream.CellKind { return turnstream.CellExecCompleted }
func (c execCompletedCell) String() string {
	return fmt.Sprintf("%s -> exit %d", strings.Join(c.completion.Command, " "), c.completion.ExitCode)
}

type patchCell struct {
	success bool
	output  string
}

func (c patchCell) Kind() turnstream.CellKind {
	if c.success {
		return turnstream.CellPatchSuccess
	}
	return turnstream.CellPatchFailure
}
func (c patchCell) String() string { return c.output }

type mcpActiveCell struct {
	invocation *turnstream.McpInvocation
}

func (c mcpActiveCell) Kind() turnstream.CellKind { return turnstream.CellMcpActive }
func (c mcpActiveCell) String() string {
	if c.invocation == nil {
		return "mcp tool call"
	}
	return fmt.Sprintf("%s/%s", c.invocation.Server, c.invocation.Tool)
}

type mcpCompletedCell struct {
	invocation *turnstream.McpInvocation
	duration   time.Duration
	success    bool
	result     *turnstream.McpToolResult
}

func (c mcpCompletedCell) Kind() turnstream.CellKind { return turnstream.CellMcpCompleted }
func (c mcpCompletedCell) String() string {
	status := "ok"
	if !c.success {
		status = "error"
	}
	if c.invocation == nil {
		return fmt.Sprintf("%s (%s)", status, c.duration)
	}
	return fmt.Sprintf("%s/%s: %s (%s)", c.invocation.Server, c.invocation.Tool, status, c.duration)
}

type mcpListToolsCell struct {
	raw []byte
}

func (c mcpListToolsCell) Kind() turnstream.CellKind { return turnstream.CellMcpListTools }
func (c mcpListToolsCell) String() string {
	if len(c.raw) == 0 {
		return "no MCP servers configured"
	}
	return string(c.raw)
}

type errorCell struct {
	Message string
}

func (c errorCell) Kind() turnstream.CellKind { return turnstream.CellError }
func (c errorCell) String() string            { return c.Message }

type statusSummaryCell struct {
	SessionID string
	Usage     turnstream.TokenUsage
}

func (c statusSummaryCell) Kind() turnstream.CellKind { return turnstream.CellStatusSummary }
func (c statusSummaryCell) String() string {
	return fmt.Sprintf("session %s: %d input / %d output tokens", c.SessionID, c.Usage.InputTokens, c.Usage.OutputTokens)
}
