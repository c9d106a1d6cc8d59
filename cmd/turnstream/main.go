// Command turnstream is the CLI surface over the rollout index, resume
// resolver, branch store, and session timeline: session bookkeeping
// outside of a running chat, plus an interactive "chat" command that
// exercises the dispatcher and agent producer end to end.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
