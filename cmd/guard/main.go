package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/guard/internal/core"
)

// selfName is the basename the management CLI is invoked under. Any other
// basename is a wrapper symlink named after the program it guards.
const selfName = "guard"

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCommand() *cobra.Command {
	var state *application

	rootCmd := &cobra.Command{
		Use:   "guard",
		Short: "Guard dangerous commands",
		Long: `guard - intercepts dangerous command invocations and protects credentials,
configuration and system paths from destructive operations.

Symlink a program name to guard (for example ~/.guard/bin/rm) to guard it.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			state, err = newApplication(cmd.ErrOrStderr())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if state != nil {
				state.Close()
			}
		},
	}

	app := func() *application { return state }
	rootCmd.AddCommand(
		getExecCommand(app),
		getCheckCommand(app),
		getClassifyCommand(app),
		getRulesCommand(app),
		getAuditCommand(app),
		getHookCommand(app),
		getConfigCommand(app),
		getWrappersCommand(app),
	)
	return rootCmd
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run dispatches on the basename of args[0] and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	name := invokedAs(args[0])
	if name != selfName {
		return runWrapper(name, args[1:], stderr)
	}

	rootCmd := newRootCommand()
	rootCmd.SetArgs(args[1:])
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitInternal
	}
	return 0
}

func invokedAs(arg0 string) string {
	name := filepath.Base(arg0)
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}

// runWrapper handles one intercepted invocation of program.
func runWrapper(program string, args []string, stderr io.Writer) int {
	state, err := newApplication(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "guard: %v\n", err)
		return core.ExitInternal
	}
	defer state.Close()

	return state.Engine(stderr).Run(context.Background(), program, args)
}
