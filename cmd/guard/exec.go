package main

import (
	"errors"

	"github.com/spf13/cobra"
)

// getExecCommand returns the exec command
func getExecCommand(app func() *application) *cobra.Command {
	return &cobra.Command{
		Use:   "exec -- PROGRAM [ARGS...]",
		Short: "Run a program through guard",
		Long: `Run one invocation exactly as a wrapper symlink would: decide, audit,
explain and then hand over to the real program.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && args[0] == "--" {
				args = args[1:]
			}
			if len(args) == 0 {
				return errors.New("exec requires a program")
			}

			code := app().Engine(cmd.ErrOrStderr()).Run(cmd.Context(), args[0], args[1:])
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
}
