package dispatch

import (
	"testing"

	"github.com/avllis/turnstream"
)

// TestRoutingTableIsExhaustive guarantees every EventKind has a routing
// entry — the idiomatic-Go stand-in for a sum type's compiler-enforced
// exhaustiveness check (§9 design notes). A new EventKind added to the
// root package without a corresponding entry in handledKinds fails this
// test. handledKinds is maintained by hand beside route(); the test does
// not inspect route()'s cases.
func TestRoutingTableIsExhaustive(t *testing.T) {
	for _, k := range turnstream.AllEventKinds() {
		if !handledKinds[k] {
			t.Fatalf("EventKind %s has no routing-table entry", k)
		}
	}
}
