package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/guard/internal/core/security"
)

// getClassifyCommand returns the classify command
func getClassifyCommand(app func() *application) *cobra.Command {
	return &cobra.Command{
		Use:   "classify PATH...",
		Short: "Show how paths resolve against the protected resources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, raw := range args {
				writeResolution(out, app().controller.ClassifyPath(raw))
			}
			return nil
		},
	}
}

func writeResolution(w io.Writer, res security.Resolution) {
	fmt.Fprintf(w, "%s\n", res.Raw)
	fmt.Fprintf(w, "  lexical:   %s\n", res.Lexical)
	if res.Degraded {
		fmt.Fprintf(w, "  canonical: unresolved\n")
	} else {
		fmt.Fprintf(w, "  canonical: %s\n", res.Canonical)
	}
	if res.Traversal {
		fmt.Fprintf(w, "  traversal: yes\n")
	}

	if res.Resource == nil {
		fmt.Fprintf(w, "  class:     none\n")
		return
	}
	protected := res.Resource.Path()
	if protected == "" {
		protected = fmt.Sprintf("name %v", res.Resource.Names)
	}
	fmt.Fprintf(w, "  class:     %s (%s)\n", res.Resource.Class, protected)
	if res.Resource.Description != "" {
		fmt.Fprintf(w, "  about:     %s\n", res.Resource.Description)
	}
}
