package agentproc

import (
	"strings"

	"github.com/avllis/turnstream/internal/jsonutil"
)

const (
	subcmdExec   = "exec"
	subcmdResume = "resume"
	flagJSON     = "--json"

	defaultBinary = "codex"
)

// codexEffort maps Session.Effort values to Codex's
// model_reasoning_effort values; "max" is Codex-specific ("xhigh").
var codexEffort = map[string]string{
	"low":    "low",
	"medium": "medium",
	"high":   "high",
	"max":    "xhigh",
}

func binaryOf(s Session) string {
	if s.Binary != "" {
		return s.Binary
	}
	return defaultBinary
}

// buildExecArgs builds "codex exec --json [policy] [common] -- <prompt>"
// for the first turn of a session.
func buildExecArgs(s Session) []string {
	args := []string{subcmdExec, flagJSON}
	args = appendExecPolicy(args, s)
	args = appendCommonArgs(args, s)
	args = append(args, "--")
	if s.Prompt != "" && !jsonutil.ContainsNull(s.Prompt) {
		args = append(args, s.Prompt)
	}
	return args
}

// buildResumeArgs builds "codex exec resume --json [common] [--full-auto]
// -- <threadID> <prompt>" for a subsequent turn. --sandbox is not
// supported on exec resume — the sandbox policy established on the first
// exec persists for the session.
func buildResumeArgs(s Session, threadID, prompt string) []string {
	args := []string{subcmdExec, subcmdResume, flagJSON}
	args = appendCommonArgs(args, s)
	if s.ApprovalPolicy == "full-auto" && s.SandboxPolicy != "read-only" {
		args = append(args, "--full-auto")
	}
	args = append(args, "--", threadID)
	if prompt != "" && !jsonutil.ContainsNull(prompt) {
		args = append(args, prompt)
	}
	return args
}

// appendCommonArgs appends flags available on both exec and exec resume.
func appendCommonArgs(args []string, s Session) []string {
	if m := s.Model; m != "" && !jsonutil.ContainsNull(m) && !strings.HasPrefix(m, "-") {
		args = append(args, "-m", m)
	}
	if v, ok := codexEffort[s.Effort]; ok {
		args = append(args, "-c", "model_reasoning_effort="+v)
	}
	return args
}

// appendExecPolicy appends --sandbox and/or --full-auto for the first
// exec turn. SandboxPolicy == "read-only" always wins over
// ApprovalPolicy == "full-auto": a read-only sandbox never allows
// --full-auto, since --full-auto implies workspace-write.
func appendExecPolicy(args []string, s Session) []string {
	if s.SandboxPolicy == "read-only" {
		return append(args, "--sandbox", "read-only")
	}
	if s.SandboxPolicy != "" {
		args = append(args, "--sandbox", s.SandboxPolicy)
	}
	if s.ApprovalPolicy == "full-auto" {
		args = append(args, "--full-auto")
	}
	return args
}
