// Package timeline implements the Session Timeline Presenter: a flat,
// sorted selection list of resumable steps across every session rollout
// under a root directory.
package timeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/avllis/turnstream/rollout"
)

// Entry is one selectable row of the timeline.
type Entry struct {
	Name        string
	Description string
	SortKeyMs   int64
	CWDMatch    bool
	Path        string
	StepIndex   int
}

// ShortenPath keeps only the last two path components.
func ShortenPath(path string) string {
	parts := strings.Split(strings.TrimRight(path, "/"), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// PathsMatch is a bidirectional prefix test: either path may be a prefix
// of the other.
func PathsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// Build collects every step of every rollout under root into a single
// sorted timeline, ranked by (cwd_match desc, sort_key desc) per §4.H.
func Build(root, currentCWD string) ([]Entry, error) {
	paths, err := rollout.Enumerate(root)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, p := range paths {
		sessionID := rollout.SessionID(p)
		cwd := rollout.ExtractCWD(p)
		cwdMatch := PathsMatch(currentCWD, cwd)

		for i, step := range rollout.ReadSteps(p) {
			desc := step.Summary
			if !step.CreatedAt.IsZero() || desc != "" {
				ts := step.CreatedAt.Format("2006-01-02 15:04")
				desc = fmt.Sprintf("%s  •  cwd: %s  •  %s", ts, ShortenPath(cwd), step.Summary)
			}
			entries = append(entries, Entry{
				Name:        fmt.Sprintf("%s [step %d]", sessionID, i),
				Description: desc,
				SortKeyMs:   step.SortKeyMs,
				CWDMatch:    cwdMatch,
				Path:        p,
				StepIndex:   i,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CWDMatch != entries[j].CWDMatch {
			return entries[i].CWDMatch
		}
		return entries[i].SortKeyMs > entries[j].SortKeyMs
	})
	return entries, nil
}
