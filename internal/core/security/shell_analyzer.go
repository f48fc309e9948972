package security

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// wrapperCommands run their operand as a new command. The wrapped command
// is what gets evaluated. "command" is deliberately absent: it is the
// documented way to reach an unmanaged binary.
var wrapperCommands = map[string]bool{
	"sudo":  true,
	"doas":  true,
	"env":   true,
	"nohup": true,
	"time":  true,
	"nice":  true,
}

// wrapperFlagsWithValue lists wrapper options that consume the next argument.
var wrapperFlagsWithValue = map[string]map[string]bool{
	"sudo": {"-u": true, "-g": true, "-C": true, "-D": true, "-h": true, "-p": true, "-U": true},
	"doas": {"-u": true, "-C": true},
	"env":  {"-u": true, "-C": true, "-S": true},
	"nice": {"-n": true},
}

// SimpleCommand is one program invocation found in a shell line.
type SimpleCommand struct {
	Program string
	Args    []string
	// Dynamic is set when a word contained expansions that cannot be
	// evaluated statically; such words are kept in their printed form.
	Dynamic bool
}

// ShellAnalysis is the static view of a shell command line.
type ShellAnalysis struct {
	Commands []SimpleCommand
	// Redirects are the targets of output redirections.
	Redirects []string
}

// ShellCommandAnalyzer extracts the simple commands and output redirection
// targets of a shell command line without executing it.
type ShellCommandAnalyzer struct {
	parser  *syntax.Parser
	printer *syntax.Printer
}

// NewShellCommandAnalyzer creates a new shell analyzer.
func NewShellCommandAnalyzer() *ShellCommandAnalyzer {
	return &ShellCommandAnalyzer{
		parser:  syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash)),
		printer: syntax.NewPrinter(syntax.Minify(true)),
	}
}

// Analyze parses cmdStr and returns every simple command in it, including
// those nested in pipelines, lists, subshells and command substitutions.
func (sa *ShellCommandAnalyzer) Analyze(cmdStr string) (*ShellAnalysis, error) {
	file, err := sa.parser.Parse(strings.NewReader(cmdStr), "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse shell command: %w", err)
	}

	analysis := &ShellAnalysis{}
	syntax.Walk(file, func(node syntax.Node) bool {
		stmt, ok := node.(*syntax.Stmt)
		if !ok {
			return true
		}
		for _, r := range stmt.Redirs {
			if isOutputRedirect(r.Op) && r.Word != nil {
				target, _ := sa.wordString(r.Word)
				analysis.Redirects = append(analysis.Redirects, target)
			}
		}
		call, ok := stmt.Cmd.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}

		words := make([]string, 0, len(call.Args))
		dynamic := false
		for _, w := range call.Args {
			s, static := sa.wordString(w)
			if !static {
				dynamic = true
			}
			words = append(words, s)
		}
		program, args := unwrapCommand(words[0], words[1:])
		if program != "" {
			analysis.Commands = append(analysis.Commands, SimpleCommand{
				Program: program,
				Args:    args,
				Dynamic: dynamic,
			})
		}
		return true
	})

	return analysis, nil
}

// wordString returns the literal value of a word, or its printed source
// when it contains expansions.
func (sa *ShellCommandAnalyzer) wordString(w *syntax.Word) (string, bool) {
	var b strings.Builder
	if literalParts(&b, w.Parts) {
		return b.String(), true
	}
	b.Reset()
	if err := sa.printer.Print(&b, w); err != nil {
		return "", false
	}
	return b.String(), false
}

func literalParts(b *strings.Builder, parts []syntax.WordPart) bool {
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.Lit:
			b.WriteString(unescape(p.Value))
		case *syntax.SglQuoted:
			if p.Dollar {
				return false
			}
			b.WriteString(p.Value)
		case *syntax.DblQuoted:
			if p.Dollar || !literalParts(b, p.Parts) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// unescape drops the backslashes of an unquoted literal.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// unwrapCommand walks through wrapper commands such as "sudo -u root" or
// "env FOO=1" to the program they run.
func unwrapCommand(name string, args []string) (string, []string) {
	for wrapperCommands[commandName(name)] {
		wrapper := commandName(name)
		i := 0
		for i < len(args) && strings.HasPrefix(args[i], "-") {
			flag := args[i]
			i++
			if wrapperFlagsWithValue[wrapper][flag] && i < len(args) {
				i++
			}
		}
		if wrapper == "env" {
			for i < len(args) && strings.Contains(args[i], "=") {
				i++
			}
		}
		if i >= len(args) {
			return name, nil
		}
		name = args[i]
		args = args[i+1:]
	}
	return name, args
}

// commandName strips the directory of a command word.
func commandName(name string) string {
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		return name[idx+1:]
	}
	return name
}

func isOutputRedirect(op syntax.RedirOperator) bool {
	switch op {
	case syntax.RdrOut, syntax.AppOut, syntax.ClbOut, syntax.RdrAll, syntax.AppAll, syntax.RdrInOut:
		return true
	}
	return false
}
