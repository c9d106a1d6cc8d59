package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avllis/turnstream/branch"
	"github.com/avllis/turnstream/config"
	"github.com/avllis/turnstream/resume"
	"github.com/avllis/turnstream/rollout"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage recorded session rollouts",
	}
	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsResumeCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsBranchCmd())
	cmd.AddCommand(newSessionsCheckoutCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded session rollout files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			paths, err := rollout.Enumerate(cfg.SessionsDir())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range paths {
				fmt.Fprintf(out, "%s  %s\n", rollout.SessionID(p), p)
			}
			return nil
		},
	}
}

type resumeFlags struct {
	prompt   string
	model    string
	at       string
	step     int
	profile  string
	cwd      string
	fullAuto bool
	yolo     bool
}

func newSessionsResumeCmd() *cobra.Command {
	var f resumeFlags
	f.step = -1

	cmd := &cobra.Command{
		Use:   "resume <TARGET>",
		Short: "Resume an existing session rollout with a new prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.prompt == "" {
				return fmt.Errorf("--prompt is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path, err := resume.Resolve(cfg.Home, args[0])
			if err != nil {
				return err
			}

			var responseID string
			// --at takes precedence over --step (§4.B open question 2).
			if f.at != "" {
				responseID = f.at
			} else if f.step >= 0 {
				rid, ok := resume.ResolveStep(path, f.step)
				if !ok {
					return fmt.Errorf("No response id found at step %d", f.step)
				}
				responseID = rid
			}

			execArgs := buildResumeFrontendArgs(path, responseID, f)
			binary := "codex"
			c := exec.Command(binary, execArgs...)
			c.Dir = f.cwd
			c.Stdin = os.Stdin
			c.Stdout = cmd.OutOrStdout()
			c.Stderr = cmd.ErrOrStderr()
			return c.Run()
		},
	}

	cmd.Flags().StringVar(&f.prompt, "prompt", "", "next user prompt to continue with")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "optional model override")
	cmd.Flags().StringVar(&f.at, "at", "", "resume from an exact response id")
	cmd.Flags().IntVar(&f.step, "step", -1, "resume from the response id at this step index")
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "optional profile to apply")
	cmd.Flags().StringVarP(&f.cwd, "cd", "C", "", "working directory override")
	cmd.Flags().BoolVar(&f.fullAuto, "full-auto", false, "run in full-auto (workspace-write sandbox, no confirmations)")
	cmd.Flags().BoolVar(&f.yolo, "dangerously-bypass-approvals-and-sandbox", false, "danger: run without sandbox or approvals")
	cmd.Flags().BoolVar(&f.yolo, "yolo", false, "alias for --dangerously-bypass-approvals-and-sandbox")

	return cmd
}

// buildResumeFrontendArgs builds "exec -c experimental_resume=<path> [-c
// experimental_previous_response_id=<rid>] [-m model] [-p profile]
// [--dangerously-bypass-approvals-and-sandbox|--full-auto] -- <prompt>",
// normalizing path separators to "/" in the override value per §6.
func buildResumeFrontendArgs(path, responseID string, f resumeFlags) []string {
	args := []string{"exec"}
	args = append(args, "-c", fmt.Sprintf("experimental_resume=%q", normalizeSlashes(path)))
	if responseID != "" {
		args = append(args, "-c", fmt.Sprintf("experimental_previous_response_id=%q", responseID))
	}
	if f.model != "" {
		args = append(args, "-m", f.model)
	}
	if f.profile != "" {
		args = append(args, "-p", f.profile)
	}
	if f.yolo {
		args = append(args, "--dangerously-bypass-approvals-and-sandbox")
	} else if f.fullAuto {
		args = append(args, "--full-auto")
	}
	args = append(args, "--", f.prompt)
	return args
}

func normalizeSlashes(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <TARGET>",
		Short: "Print a session's recorded steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path, err := resume.Resolve(cfg.Home, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session: %s\n", path)
			for i, step := range rollout.ReadSteps(path) {
				rid := step.ResponseID
				if len(rid) > 12 {
					rid = rid[:12]
				}
				var tail string
				ts := ""
				if !step.CreatedAt.IsZero() {
					ts = step.CreatedAt.Format("2006-01-02 15:04")
				}
				if ts != "" || step.Summary != "" {
					tail = fmt.Sprintf("  %s  %s", ts, step.Summary)
				}
				fmt.Fprintf(out, "  [%d] resp: %s%s\n", i, rid, tail)
			}
			return nil
		},
	}
}

func newSessionsBranchCmd() *cobra.Command {
	var from, name string
	cmd := &cobra.Command{
		Use:   "branch <TARGET>",
		Short: "Create a named branch pointer anchored at a response id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" || name == "" {
				return fmt.Errorf("--from and --name are required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path, err := resume.Resolve(cfg.Home, args[0])
			if err != nil {
				return err
			}
			sessionID := rollout.SessionID(path)
			if err := branch.Branch(path, sessionID, name, from); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "branched %s at %s\n", name, from)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "response id to anchor the branch at")
	cmd.Flags().StringVar(&name, "name", "", "branch name")
	return cmd
}

func newSessionsCheckoutCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "checkout <TARGET>",
		Short: "Set the active branch for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--branch is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path, err := resume.Resolve(cfg.Home, args[0])
			if err != nil {
				return err
			}
			if err := branch.Checkout(path, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked out %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "branch", "", "branch name to check out")
	return cmd
}
