package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/guard/internal/core"
	"github.com/Lin-Jiong-HDU/guard/internal/core/security"
	"github.com/Lin-Jiong-HDU/guard/internal/terminal"
)

// Exit codes of "guard check".
const (
	checkExitAllow = 0
	checkExitWarn  = 1
	checkExitBlock = core.ExitBlocked
)

type checkedCommand struct {
	Program       string   `json:"program"`
	Args          []string `json:"args"`
	Verdict       string   `json:"verdict"`
	Rule          string   `json:"rule,omitempty"`
	BypassUsed    bool     `json:"bypass_used"`
	ResourceClass string   `json:"resource_class,omitempty"`
	Override      string   `json:"override,omitempty"`
	AIWarning     string   `json:"ai_warning,omitempty"`
}

type checkReport struct {
	Verdict            string           `json:"verdict"`
	Commands           []checkedCommand `json:"commands"`
	ProtectedRedirects []string         `json:"protected_redirects,omitempty"`
}

// getCheckCommand returns the check command
func getCheckCommand(app func() *application) *cobra.Command {
	var shellLine string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check [--shell LINE | -- PROGRAM [ARGS...]]",
		Short: "Decide a command without running it",
		Long: `Decide a command without running it. With --shell the line is parsed as a
shell command and every simple command in it is decided; the worst verdict
wins.

Exit status: 0 allow, 1 warn, 77 block.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			controller := app().controller

			var report *security.ShellReport
			switch {
			case shellLine != "":
				var err error
				report, err = controller.AnalyzeShellCommand(shellLine)
				if err != nil {
					return err
				}
			case len(args) > 0:
				report = &security.ShellReport{
					Decisions: []security.Decision{controller.Evaluate(args[0], args[1:])},
				}
			default:
				return errors.New("check requires --shell or a command after --")
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeCheckJSON(out, report); err != nil {
					return err
				}
			} else {
				writeCheckText(out, report)
			}

			if code := checkExitCode(report.Verdict()); code != checkExitAllow {
				return &exitError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&shellLine, "shell", "", "shell command line to analyze")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the decision as JSON")

	return cmd
}

func checkExitCode(v security.Verdict) int {
	switch v {
	case security.Block:
		return checkExitBlock
	case security.Warn:
		return checkExitWarn
	}
	return checkExitAllow
}

func newCheckReport(report *security.ShellReport) checkReport {
	r := checkReport{
		Verdict:  report.Verdict().String(),
		Commands: make([]checkedCommand, 0, len(report.Decisions)),
	}
	for _, d := range report.Decisions {
		c := checkedCommand{
			Program:       d.Program,
			Args:          d.Argv,
			Verdict:       d.Verdict.String(),
			BypassUsed:    d.BypassUsed,
			ResourceClass: d.ResourceClass(),
		}
		if c.Args == nil {
			c.Args = []string{}
		}
		if d.Rule != nil {
			c.Rule = d.Rule.ID
			c.AIWarning = d.Rule.AIWarning
			if d.Verdict == security.Block {
				c.Override = d.OverrideCommand()
			}
		}
		r.Commands = append(r.Commands, c)
	}
	for _, res := range report.ProtectedRedirects {
		r.ProtectedRedirects = append(r.ProtectedRedirects, res.Raw)
	}
	return r
}

func writeCheckJSON(w io.Writer, report *security.ShellReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newCheckReport(report))
}

func writeCheckText(w io.Writer, report *security.ShellReport) {
	notifier := terminal.NewNotifier(w)
	for _, d := range report.Decisions {
		line := strings.TrimSpace(d.Program + " " + strings.Join(d.Argv, " "))
		fmt.Fprintf(w, "%s\t%s\n", d.Verdict, line)
		notifier.Notice(d, "")
	}
	for _, res := range report.ProtectedRedirects {
		class, _ := res.Class()
		fmt.Fprintf(w, "%s\tredirect into %s [%s]\n", security.Warn, res.Raw, class)
	}
}
