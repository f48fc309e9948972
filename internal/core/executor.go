package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no real program exists outside the wrapper
// directory.
var ErrNotFound = errors.New("command not found")

// Executor finds and runs the real programs behind the wrappers.
type Executor struct {
	wrapperDir string
	self       string
	path       string

	// childProcess runs the real program as a child and propagates its exit
	// code instead of replacing the current process image.
	childProcess bool
}

// NewExecutor creates a new executor. Directories equal to wrapperDir and
// binaries resolving to the running guard executable are never selected as
// the real program.
func NewExecutor(wrapperDir string) *Executor {
	self, err := os.Executable()
	if err == nil {
		if resolved, err := filepath.EvalSymlinks(self); err == nil {
			self = resolved
		}
	}
	return &Executor{
		wrapperDir:   wrapperDir,
		self:         self,
		path:         os.Getenv("PATH"),
		childProcess: !canReplaceProcess,
	}
}

// Result represents command execution result
type Result struct {
	Output   string
	ExitCode int
	Error    error
}

// LookupReal walks PATH for program, skipping the wrappers.
func (e *Executor) LookupReal(program string) (string, error) {
	if strings.ContainsRune(program, filepath.Separator) || strings.Contains(program, "/") {
		return "", fmt.Errorf("%w: %s", ErrNotFound, program)
	}

	wrapperDir := canonicalDir(e.wrapperDir)
	for _, dir := range filepath.SplitList(e.path) {
		if dir == "" {
			dir = "."
		}
		if wrapperDir != "" && canonicalDir(dir) == wrapperDir {
			continue
		}
		for _, candidate := range executableCandidates(dir, program) {
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() || !isExecutable(info) {
				continue
			}
			if e.isSelf(candidate) {
				continue
			}
			if !filepath.IsAbs(candidate) {
				if abs, err := filepath.Abs(candidate); err == nil {
					candidate = abs
				}
			}
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, program)
}

func (e *Executor) isSelf(candidate string) bool {
	if e.self == "" {
		return false
	}
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return false
	}
	return resolved == e.self
}

// Exec hands the invocation over to the real program and returns the exit
// code to leave with. On unix the current process is replaced, so Exec only
// returns on failure.
func (e *Executor) Exec(ctx context.Context, realPath, program string, args []string) int {
	argv := append([]string{program}, args...)
	if !e.childProcess {
		if err := replaceProcess(realPath, argv, os.Environ()); err != nil {
			fmt.Fprintf(os.Stderr, "guard: exec %s: %v\n", realPath, err)
			return ExitInternal
		}
	}

	cmd := exec.CommandContext(ctx, realPath, args...)
	cmd.Args = argv
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "guard: run %s: %v\n", realPath, err)
	return ExitInternal
}

// Execute runs a command and returns the result with combined output. The
// context bounds its run time.
func (e *Executor) Execute(ctx context.Context, cmd Command) (*Result, error) {
	execCmd := exec.CommandContext(ctx, cmd.Cmd, cmd.Args...)

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err := execCmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		output += "\n" + stderr.String()
	}

	result := &Result{
		Output: strings.TrimSpace(output),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		result.Error = err
	}

	return result, nil
}

func canonicalDir(dir string) string {
	if dir == "" {
		return ""
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
