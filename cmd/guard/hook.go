package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/guard/internal/core"
	"github.com/Lin-Jiong-HDU/guard/internal/core/execution"
)

// getHookCommand returns the hook command
func getHookCommand(app func() *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Run the configured validators",
	}
	cmd.AddCommand(getHookRunCommand(app))
	return cmd
}

func getHookRunCommand(app func() *application) *cobra.Command {
	var timeout time.Duration
	var jobs int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every validator from hooks.validators",
		Long: `Run every validator from hooks.validators concurrently. Each validator gets
its own timeout; the command fails when any validator fails or times out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app().cfg
			checks := execution.ChecksFromConfig(cfg.Hooks.Validators)

			out := cmd.OutOrStdout()
			if len(checks) == 0 {
				fmt.Fprintln(out, "no validators configured")
				fmt.Fprintln(out, "hint: add hooks.validators to the config file")
				return nil
			}

			if jobs <= 0 {
				jobs = cfg.Hooks.Jobs
			}
			pipeline := execution.NewPipeline(core.NewExecutor(""), jobs, timeout)
			results, err := pipeline.Run(cmd.Context(), checks)

			for _, r := range results {
				if r.Passed() {
					fmt.Fprintf(out, "  ✓ %s (%s)\n", r.Name, r.Duration.Round(time.Millisecond))
					continue
				}
				fmt.Fprintf(out, "  ✗ %s: %v\n", r.Name, r.Err)
				if r.Output != "" {
					for _, line := range strings.Split(r.Output, "\n") {
						fmt.Fprintf(out, "    %s\n", line)
					}
				}
			}

			if err != nil {
				return fmt.Errorf("validators failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "timeout for validators without their own")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "validators run at once (default hooks.jobs)")

	return cmd
}
