// Command proctree is a minimal demonstration CLI: it builds a small
// sample process tree, registers it with a Manager, executes a Process
// against it, and — if the tree suspends — resumes it from a flag so the
// whole construct/execute/resume cycle can be exercised from a shell.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/proctree/config"
	"github.com/tailored-agentic-units/proctree/manager"
	"github.com/tailored-agentic-units/proctree/observability"
	"github.com/tailored-agentic-units/proctree/process"
	"github.com/tailored-agentic-units/proctree/ptree"
	"github.com/tailored-agentic-units/proctree/status"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		resumePath string
		failPath   string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "proctree",
		Short: "Build, execute, and resume a sample process tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			obs := observability.NewSlogObserver(logger)
			observability.RegisterObserver("slog", obs)

			mgr := manager.New(config.DefaultManagerConfig(), nil).WithObserver(obs)
			if err := mgr.RegisterGlobal("cmd.demo", sampleTree()); err != nil {
				return fmt.Errorf("register tree: %w", err)
			}

			p := process.New().WithObserver(obs)
			result, err := p.Execute(mgr, "cmd.demo")
			if err != nil {
				return fmt.Errorf("execute: %w", err)
			}
			logger.Info("executed", "status", result.String())

			switch {
			case result == status.Waiting && resumePath != "":
				result, err = p.Resume(resumePath)
				if err != nil {
					return fmt.Errorf("resume %q: %w", resumePath, err)
				}
				logger.Info("resumed", "path", resumePath, "status", result.String())
			case result == status.Waiting && failPath != "":
				result, err = p.Fail(failPath)
				if err != nil {
					return fmt.Errorf("fail %q: %w", failPath, err)
				}
				logger.Info("failed", "path", failPath, "status", result.String())
			case result == status.Waiting:
				fmt.Printf("process %s is WAITING; rerun with --resume <path> or --fail <path>\n", p.ID())
				return nil
			}

			fmt.Printf("process %s finished: %s\n", p.ID(), result)
			if failures := p.Failures(); len(failures) > 0 {
				fmt.Println("recorded failures:")
				for _, f := range failures {
					fmt.Printf("  - %v\n", f)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resumePath, "resume", "", "dotted node path to resume with SUCCESS")
	cmd.Flags().StringVar(&failPath, "fail", "", "dotted node path to resume with FAILURE")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

// sampleTree builds a small two-step sequence where the second step waits
// for external confirmation, addressable as "confirm".
func sampleTree() ptree.Node {
	return ptree.NewSequence("cmd.demo",
		ptree.NewHandler("validate", func(ptree.Session) status.ResultStatus {
			return status.Success
		}),
		ptree.NewHandler("confirm", func(ptree.Session) status.ResultStatus {
			return status.Waiting
		}),
	)
}
