// Package turnstream implements the interactive conversation core of an
// agentic coding assistant's terminal UI: a typed event dispatcher with an
// interrupt queue, a line-animated streaming controller, and a rollout
// index / resume resolver for session persistence.
//
// Terminal rendering, agent process spawning and transport, the
// language-model HTTP client, sandboxing, and configuration-file parsing
// are deliberately out of scope — this package treats the agent as an
// opaque producer of the Event stream defined here and a consumer of Op
// values. See internal/agentproc for one concrete producer implementation.
package turnstream
