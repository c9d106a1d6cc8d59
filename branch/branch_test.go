package branch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newRollout(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rollout-2024-01-01T00-00-00-sess.jsonl")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// S5 — Branch creation.
func TestBranchCreateAndDuplicateRejected(t *testing.T) {
	path := newRollout(t)

	if err := Branch(path, "sess", "exp", "r2"); err != nil {
		t.Fatalf("Branch: %v", err)
	}

	idx, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(idx.Branches) != 1 {
		t.Fatalf("got %d branches, want 1", len(idx.Branches))
	}
	b := idx.Branches[0]
	if b.Name != "exp" || b.BaseResponseID != "r2" || b.TipResponseID != "r2" {
		t.Fatalf("unexpected branch entry: %+v", b)
	}
	if idx.Head != "exp" {
		t.Fatalf("got head %q, want exp", idx.Head)
	}
	if _, err := time.Parse(time.RFC3339, idx.UpdatedAt); err != nil {
		t.Fatalf("updatedAt not RFC3339: %v", err)
	}

	indexFile := indexPath(path)
	before, err := os.ReadFile(indexFile)
	if err != nil {
		t.Fatal(err)
	}

	err = Branch(path, "sess", "exp", "r2")
	if err == nil {
		t.Fatal("expected duplicate branch name to fail")
	}

	after, err := os.ReadFile(indexFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatalf("index file mutated after failed duplicate call")
	}
}

func TestCheckoutRoundTrip(t *testing.T) {
	path := newRollout(t)
	if err := Branch(path, "sess", "a", "r1"); err != nil {
		t.Fatal(err)
	}
	if err := Branch(path, "sess", "b", "r2"); err != nil {
		t.Fatal(err)
	}

	if err := Checkout(path, "a"); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	idx, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Head != "a" {
		t.Fatalf("got head %q, want a", idx.Head)
	}
}

func TestCheckoutNoBranches(t *testing.T) {
	path := newRollout(t)
	if err := Checkout(path, "nope"); err == nil {
		t.Fatal("expected error when no index exists")
	}
}

func TestCheckoutBranchNotFound(t *testing.T) {
	path := newRollout(t)
	if err := Branch(path, "sess", "a", "r1"); err != nil {
		t.Fatal(err)
	}
	if err := Checkout(path, "missing"); err == nil {
		t.Fatal("expected error for missing branch")
	}
}
