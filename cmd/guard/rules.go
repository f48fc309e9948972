package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/guard/internal/core/rules"
	"github.com/Lin-Jiong-HDU/guard/internal/terminal"
)

const renderWidth = 80

// getRulesCommand returns the rules command
func getRulesCommand(app func() *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the built-in rules",
	}
	cmd.AddCommand(getRulesListCommand(app), getRulesShowCommand(app))
	return cmd
}

func getRulesListCommand(app func() *application) *cobra.Command {
	var program string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := app().controller.Registry()

			programs := registry.Programs()
			if program != "" {
				program = rules.NormalizeProgram(program)
				if !registry.Wraps(program) {
					return fmt.Errorf("no rules for %q", program)
				}
				programs = []string{program}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROGRAM\tSEVERITY\tBYPASS\tMESSAGE")
			for _, p := range programs {
				for _, r := range registry.AllFor(p) {
					bypass := r.Bypass
					if bypass == "" {
						bypass = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Program, r.Severity, bypass, r.Message)
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&program, "program", "p", "", "only list rules for this program")

	return cmd
}

func getRulesShowCommand(app func() *application) *cobra.Command {
	var noRender bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Explain one rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, ok := app().controller.Registry().Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown rule %q", args[0])
			}

			md := terminal.RuleMarkdown(rule)
			if !noRender {
				if renderer, err := terminal.NewRenderer(renderWidth); err == nil {
					md = renderer.Render(md)
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRender, "no-render", false, "print raw markdown")

	return cmd
}
