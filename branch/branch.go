// Package branch implements the Branch Store: named branch pointers and
// the active head, persisted in a resume-index.json file adjacent to each
// session's rollout file.
package branch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avllis/turnstream/internal/applog"
)

// ErrBranchExists is returned by Branch when a branch with the requested
// name already exists.
var ErrBranchExists = errors.New("branch: already exists")

// ErrNoBranches is returned by Checkout when no resume-index.json exists
// for the session yet.
var ErrNoBranches = errors.New("branch: no branches found for this session")

// ErrBranchNotFound is returned by Checkout when the named branch is
// absent from the index.
var ErrBranchNotFound = errors.New("branch: not found")

const indexFileName = "resume-index.json"

// Entry is a single named branch pointer.
type Entry struct {
	BranchID       string `json:"branchId"`
	Name           string `json:"name"`
	BaseResponseID string `json:"baseResponseId"`
	TipResponseID  string `json:"tipResponseId"`
	CreatedAt      string `json:"createdAt"`
}

// Index is the on-disk shape of resume-index.json.
type Index struct {
	SessionID string  `json:"sessionId"`
	Branches  []Entry `json:"branches"`
	Head      string  `json:"head,omitempty"`
	UpdatedAt string  `json:"updatedAt"`
}

func indexPath(rolloutPath string) string {
	return filepath.Join(filepath.Dir(rolloutPath), indexFileName)
}

func load(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Index{}, nil
	}
	if err != nil {
		applog.Default().Warn("resume index read failed", zap.String("path", path), zap.Error(err))
		return Index{}, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		applog.Default().Warn("resume index is not valid JSON", zap.String("path", path), zap.Error(err))
		return Index{}, err
	}
	return idx, nil
}

// writeAtomic writes idx to path via temp file + rename, so readers never
// observe a partial document (§5 shared-resource policy, §9 branch index
// atomicity).
func writeAtomic(path string, idx Index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".resume-index-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Branch implements §4.C branch: load-or-init the index for sessionID
// adjacent to rolloutPath, fail if a branch named name already exists,
// append a new entry anchored at fromResponseID, and set head to name.
// The write is all-or-nothing: on ErrBranchExists the file on disk is
// left byte-identical to its pre-call state (invariant 5 / S5).
func Branch(rolloutPath, sessionID, name, fromResponseID string) error {
	path := indexPath(rolloutPath)
	idx, err := load(path)
	if err != nil {
		return err
	}
	if idx.SessionID == "" {
		idx.SessionID = sessionID
	}
	for _, e := range idx.Branches {
		if e.Name == name {
			return fmt.Errorf("%w: %s", ErrBranchExists, name)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	idx.Branches = append(idx.Branches, Entry{
		BranchID:       "b_" + uuid.New().String(),
		Name:           name,
		BaseResponseID: fromResponseID,
		TipResponseID:  fromResponseID,
		CreatedAt:      now,
	})
	idx.Head = name
	idx.UpdatedAt = now

	if err := writeAtomic(path, idx); err != nil {
		return err
	}
	applog.Default().Info("branch created",
		zap.String("session_id", idx.SessionID),
		zap.String("name", name),
		zap.String("base_response_id", fromResponseID))
	return nil
}

// Checkout implements §4.C checkout: sets head to name, failing if no
// index exists or no branch with that name is present.
func Checkout(rolloutPath, name string) error {
	path := indexPath(rolloutPath)
	idx, err := load(path)
	if err != nil {
		return err
	}
	if len(idx.Branches) == 0 {
		return ErrNoBranches
	}
	found := false
	for _, e := range idx.Branches {
		if e.Name == name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}

	idx.Head = name
	idx.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := writeAtomic(path, idx); err != nil {
		return err
	}
	applog.Default().Info("branch checked out",
		zap.String("session_id", idx.SessionID),
		zap.String("name", name))
	return nil
}

// Load reads the resume index adjacent to rolloutPath, returning a zero
// Index (no error) when none exists yet.
func Load(rolloutPath string) (Index, error) {
	return load(indexPath(rolloutPath))
}
