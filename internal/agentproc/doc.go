// Package agentproc is a concrete Agent Producer: it spawns a Codex-style
// CLI binary as a subprocess, scans its newline-delimited JSON event
// stream, and translates each line into a turnstream.Event on a channel.
// It is supporting infrastructure for cmd/turnstream and its tests, not
// part of turnstream's public contract — any producer that emits Event
// values on a channel may be substituted.
//
// Subprocess lifecycle (spawn, SIGTERM-then-SIGKILL shutdown, the
// resume-per-turn restart used for multi-turn conversation) drives a
// single backend, since this module carries only the Codex-shaped
// wire protocol the rollout/resume format is anchored to.
package agentproc
