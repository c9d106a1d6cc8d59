// Package resume implements the Resume Resolver: mapping a user-supplied
// target (path, session id, or step) to a concrete rollout file and
// previous-response-id.
package resume

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/avllis/turnstream/rollout"
)

// Resolve implements §4.B resolve: if target names an existing path,
// return it unchanged. Otherwise treat target as a session id, enumerate
// rollouts under codexHome/sessions, and return the lexicographically
// last one whose session id matches.
func Resolve(codexHome, target string) (string, error) {
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	sessionsDir := filepath.Join(codexHome, "sessions")
	paths, err := rollout.Enumerate(sessionsDir)
	if err != nil {
		return "", err
	}

	var match string
	for _, p := range paths {
		if rollout.SessionID(p) == target {
			match = p
		}
	}
	if match == "" {
		return "", fmt.Errorf("No rollout found for session id: %s", target)
	}
	return match, nil
}

// ResolveStep implements §4.B resolve_step: returns the distinct response
// id at stepIndex (0-based, same collapsing rule as rollout.ReadSteps), or
// ok=false if stepIndex is out of range.
func ResolveStep(path string, stepIndex int) (string, bool) {
	steps := rollout.ReadSteps(path)
	if stepIndex < 0 || stepIndex >= len(steps) {
		return "", false
	}
	if steps[stepIndex].ResponseID == "" {
		return "", false
	}
	return steps[stepIndex].ResponseID, true
}
