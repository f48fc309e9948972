package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// getWrappersCommand returns the wrappers command
func getWrappersCommand(app func() *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrappers",
		Short: "Show the programs guard wraps",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List wrapped programs and whether their symlink is installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wrapper dir: %s\n", a.cfg.WrapperDir)
			for _, program := range a.controller.Registry().Programs() {
				state := "missing"
				if _, err := os.Lstat(filepath.Join(a.cfg.WrapperDir, program)); err == nil {
					state = "installed"
				}
				fmt.Fprintf(out, "  %-12s %s\n", program, state)
			}
			return nil
		},
	})
	return cmd
}
