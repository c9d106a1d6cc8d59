package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avllis/turnstream"
	"github.com/avllis/turnstream/dispatch"
	"github.com/avllis/turnstream/internal/agentproc"
	"github.com/avllis/turnstream/internal/applog"
)

// consoleSink prints each history cell on its own line. A real terminal
// UI would render cells into a scrollback widget; this core's contract
// ends at HistorySink.Insert (§1 Non-goals).
type consoleSink struct{}

func (consoleSink) Insert(cell turnstream.HistoryCell) {
	if s := cell.String(); s != "" {
		fmt.Println(s)
	}
}

// noopRedrawer satisfies dispatch.Redrawer for a line-oriented console,
// which has nothing to coalesce a redraw against.
type noopRedrawer struct{}

func (noopRedrawer) RequestRedraw() {}

func newChatCmd() *cobra.Command {
	var model, effort, approvalPolicy, sandboxPolicy, binary, prompt string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session against an agent subprocess",
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt is required for the first turn")
			}
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log := applog.Default()

			session := agentproc.Session{
				ID:             "chat",
				CWD:            cwd,
				Model:          model,
				Prompt:         prompt,
				Binary:         binary,
				ApprovalPolicy: approvalPolicy,
				SandboxPolicy:  sandboxPolicy,
				Effort:         effort,
			}

			ops := make(chan turnstream.Op, 16)
			d := dispatch.New(ops, consoleSink{}, noopRedrawer{}, log.Sugar())

			proc, err := agentproc.Start(ctx, session)
			if err != nil {
				return fmt.Errorf("starting agent: %w", err)
			}
			defer proc.Stop(context.Background())

			go runOpLoop(ctx, proc, ops, log)
			go promptLoop(ctx, proc, log)

			for ev := range proc.Output() {
				d.Dispatch(ev)
				if app, ok := d.PopAppEvent(); ok && app.Kind == dispatch.AppEventExitRequest {
					return nil
				}
			}
			return proc.Err()
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "first turn's prompt")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model override")
	cmd.Flags().StringVar(&effort, "effort", "", "reasoning effort: low, medium, high, max")
	cmd.Flags().StringVar(&approvalPolicy, "approval-policy", "", "full-auto or empty for manual approvals")
	cmd.Flags().StringVar(&sandboxPolicy, "sandbox", "", "read-only, workspace-write, or empty")
	cmd.Flags().StringVar(&binary, "agent-binary", "", "override the agent executable (defaults to codex)")
	return cmd
}

// runOpLoop forwards dispatcher Ops to the subprocess: OpUserInput becomes
// the next turn's Send, OpInterrupt and OpShutdown stop the subprocess.
func runOpLoop(ctx context.Context, proc *agentproc.Proc, ops <-chan turnstream.Op, log *applog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case op, ok := <-ops:
			if !ok {
				return
			}
			switch op.Kind {
			case turnstream.OpUserInput:
				if len(op.Items) == 0 {
					continue
				}
				if err := proc.Send(ctx, op.Items[0]); err != nil {
					log.Warn("send failed", zap.Error(err))
				}
			case turnstream.OpInterrupt, turnstream.OpShutdown:
				_ = proc.Stop(ctx)
				return
			}
		}
	}
}

// promptLoop reads lines from stdin and forwards each as a turn once the
// prior one has completed, matching the resume-per-turn subprocess model.
func promptLoop(ctx context.Context, proc *agentproc.Proc, log *applog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		// Slash commands are composer-local; they are never forwarded to
		// the agent as user input.
		if strings.HasPrefix(line, "/") {
			if req, ok := dispatch.ParseResumeCommand(line); ok {
				fmt.Printf("resume %s with %q: run `turnstream sessions resume %s --prompt %q`\n",
					req.Target, req.Prompt, req.Target, req.Prompt)
			}
			continue
		}
		if err := proc.Send(ctx, line); err != nil {
			log.Warn("send failed", zap.Error(err))
		}
	}
}
