// Package rollout implements the Rollout Index: enumeration of session
// rollout files, session-id extraction from their filenames, and the
// step (distinct response-id) timeline each file carries.
package rollout

import (
	"bufio"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avllis/turnstream/internal/applog"
	"github.com/avllis/turnstream/internal/jsonutil"
	"github.com/avllis/turnstream/internal/textutil"
)

// ErrNotFound identifies a rollout file or session id that cannot be
// located. No function in this module returns it: ReadSteps and
// ExtractCWD report an unreadable file with an empty result, and
// resume.Resolve returns its own error.
var ErrNotFound = errors.New("rollout: not found")

const (
	filePrefix = "rollout-"
	fileSuffix = ".jsonl"
)

// Enumerate recursively walks root, collecting regular files whose
// basename begins with "rollout-" and ends with ".jsonl". A non-existent
// root yields an empty, non-error result; I/O errors on subdirectories
// propagate. The result is sorted lexicographically.
func Enumerate(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// SessionID returns the session id embedded in a rollout path's basename:
// the substring after the final '-' once the ".jsonl" suffix is stripped.
// Returns "" if the basename has no '-'.
func SessionID(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), fileSuffix)
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return ""
	}
	return base[idx+1:]
}

// Step is one distinct response-id position within a rollout, in file
// order.
type Step struct {
	ResponseID string
	CreatedAt  time.Time
	Summary    string
	SortKeyMs  int64
}

type messageRecord struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Text    string `json:"text"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"content"`
}

// ReadSteps implements §4.A read_steps: it scans path line by line for
// "state" records, collapsing consecutive identical last_response_id
// values into a single step, and falls back to a single synthesized
// legacy step when no state record is found.
func ReadSteps(path string) []Step {
	log := applog.Default()
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("rollout read failed", zap.String("path", path), zap.Error(err))
		return nil
	}

	var steps []Step
	var lastID string
	var lastAssistant, lastUser string

	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		if strings.Contains(line, `"record_type":"state"`) {
			var m map[string]any
			if err := json.Unmarshal([]byte(line), &m); err != nil {
				log.Debug("skipping malformed state record", zap.String("path", path), zap.Error(err))
				continue
			}
			rid := jsonutil.ProbeString(m, "state", "last_response_id")
			createdAt := jsonutil.ProbeString(m, "state", "created_at")
			summary := jsonutil.ProbeString(m, "state", "summary")
			if rid == "" || rid == lastID {
				continue
			}
			lastID = rid

			sortKey := fileMtimeMs(path)
			var ts time.Time
			if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
				ts = t
				sortKey = t.UnixMilli()
			}
			steps = append(steps, Step{
				ResponseID: rid,
				CreatedAt:  ts,
				Summary:    summary,
				SortKeyMs:  sortKey,
			})
			continue
		}

		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			log.Debug("skipping malformed rollout line", zap.String("path", path), zap.Error(err))
			continue
		}
		if jsonutil.GetString(m, "type") != "message" {
			continue
		}
		var rec messageRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Debug("skipping malformed message record", zap.String("path", path), zap.Error(err))
			continue
		}
		if text := firstContentText(rec); text != "" {
			switch rec.Role {
			case "assistant":
				lastAssistant = text
			case "user":
				lastUser = text
			}
		}
	}

	if len(steps) > 0 {
		return steps
	}

	summary := lastAssistant
	if summary == "" {
		summary = lastUser
	}
	summary = textutil.TruncateEllipsis(textutil.FirstLine(summary), textutil.SummaryMaxLen)

	mtime := fileMtime(path)
	return []Step{{
		Summary:   summary,
		SortKeyMs: mtime.UnixMilli(),
		CreatedAt: mtime,
	}}
}

func firstContentText(rec messageRecord) string {
	for _, c := range rec.Content {
		if c.Text != "" {
			return c.Text
		}
		for _, nested := range c.Content {
			if nested.Text != "" {
				return nested.Text
			}
		}
	}
	return ""
}

func fileMtime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func fileMtimeMs(path string) int64 {
	return fileMtime(path).UnixMilli()
}

// ExtractCWD scans non-state records for a local_shell_call action whose
// working_directory is non-empty, returning the first such value.
func ExtractCWD(path string) string {
	log := applog.Default()
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("rollout read failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.Contains(line, `"record_type":"state"`) {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			log.Debug("skipping malformed rollout line", zap.String("path", path), zap.Error(err))
			continue
		}
		if jsonutil.GetString(m, "type") != "local_shell_call" {
			continue
		}
		action := jsonutil.GetMap(m, "action")
		exec := jsonutil.GetMap(action, "exec")
		if cwd := jsonutil.GetString(exec, "working_directory"); cwd != "" {
			return cwd
		}
	}
	return ""
}
