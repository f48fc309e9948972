package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/guard/internal/audit"
)

const topRuleCount = 10

// getAuditCommand returns the audit command
func getAuditCommand(app func() *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit log",
	}
	cmd.AddCommand(
		getAuditTailCommand(app),
		getAuditStatsCommand(app),
		&cobra.Command{
			Use:   "path",
			Short: "Print the active audit log path",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), app().cfg.AuditLogPath)
			},
		},
	)
	return cmd
}

func getAuditTailCommand(app func() *application) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := audit.NewReader(app().cfg.AuditLogPath).Tail(count)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no audit records")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tDECISION\tPROGRAM\tRULE\tBYPASS\tCLASS\tUSER")
			for _, rec := range records {
				bypass := ""
				if rec.BypassUsed {
					bypass = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					rec.Timestamp.Local().Format(time.DateTime),
					rec.Decision, rec.Program, rec.RuleID, bypass, rec.ResourceClass, rec.User)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&count, "lines", "n", 20, "number of records")

	return cmd
}

func getAuditStatsCommand(app func() *application) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the active audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := audit.NewReader(app().cfg.AuditLogPath).Stats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "records:   %d\n", stats.Total)
			fmt.Fprintf(out, "bypassed:  %d\n", stats.Bypassed)
			if stats.Malformed > 0 {
				fmt.Fprintf(out, "malformed: %d\n", stats.Malformed)
			}

			decisions := make([]string, 0, len(stats.ByDecision))
			for d := range stats.ByDecision {
				decisions = append(decisions, d)
			}
			sort.Strings(decisions)
			for _, d := range decisions {
				fmt.Fprintf(out, "%-10s %d\n", d+":", stats.ByDecision[d])
			}

			top := stats.TopRules()
			if len(top) > topRuleCount {
				top = top[:topRuleCount]
			}
			if len(top) > 0 {
				fmt.Fprintln(out, "\ntop rules:")
				for _, id := range top {
					fmt.Fprintf(out, "  %-28s %d\n", id, stats.ByRule[id])
				}
			}
			return nil
		},
	}
}
