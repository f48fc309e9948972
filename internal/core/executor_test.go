package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return path
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are unix only")
	}
}

func TestExecutor_LookupRealSkipsWrappers(t *testing.T) {
	skipOnWindows(t)
	wrapperDir := t.TempDir()
	realDir := t.TempDir()
	writeScript(t, wrapperDir, "tool", "exit 99")
	real := writeScript(t, realDir, "tool", "exit 0")

	e := NewExecutor(wrapperDir)
	e.path = strings.Join([]string{wrapperDir, realDir}, string(os.PathListSeparator))

	got, err := e.LookupReal("tool")
	if err != nil {
		t.Fatalf("LookupReal failed: %v", err)
	}
	if got != real {
		t.Errorf("Expected %s, got %s", real, got)
	}
}

func TestExecutor_LookupRealSkipsSelf(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor("")
	if e.self == "" {
		t.Skip("executable path unavailable")
	}

	linkDir := t.TempDir()
	realDir := t.TempDir()
	if err := os.Symlink(e.self, filepath.Join(linkDir, "tool")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	real := writeScript(t, realDir, "tool", "exit 0")
	e.path = strings.Join([]string{linkDir, realDir}, string(os.PathListSeparator))

	got, err := e.LookupReal("tool")
	if err != nil {
		t.Fatalf("LookupReal failed: %v", err)
	}
	if got != real {
		t.Errorf("Expected %s, got %s", real, got)
	}
}

func TestExecutor_LookupRealNotFound(t *testing.T) {
	skipOnWindows(t)
	wrapperDir := t.TempDir()
	writeScript(t, wrapperDir, "tool", "exit 0")
	plain := t.TempDir()
	if err := os.WriteFile(filepath.Join(plain, "tool"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	e := NewExecutor(wrapperDir)
	e.path = strings.Join([]string{wrapperDir, plain}, string(os.PathListSeparator))

	if _, err := e.LookupReal("tool"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := e.LookupReal("../tool"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a path, got %v", err)
	}
}

func TestExecutor_ExecPropagatesExitCode(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "tool", `[ "$1" = "--flag" ] || exit 2; exit 3`)

	e := NewExecutor("")
	e.childProcess = true

	if code := e.Exec(context.Background(), script, "tool", []string{"--flag"}); code != 3 {
		t.Errorf("Expected exit code 3, got %d", code)
	}
	if code := e.Exec(context.Background(), script, "tool", nil); code != 2 {
		t.Errorf("Expected exit code 2, got %d", code)
	}
	if code := e.Exec(context.Background(), filepath.Join(dir, "missing"), "missing", nil); code != ExitInternal {
		t.Errorf("Expected exit code %d, got %d", ExitInternal, code)
	}
}

func TestExecute_SimpleCommand(t *testing.T) {
	skipOnWindows(t)
	executor := NewExecutor("")

	result, err := executor.Execute(context.Background(), Command{
		Cmd:  "echo",
		Args: []string{"hello", "world"},
	})

	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Output != "hello world" {
		t.Errorf("Expected 'hello world', got '%s'", result.Output)
	}
	if result.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode)
	}
}

func TestExecute_CommandNotFound(t *testing.T) {
	executor := NewExecutor("")

	result, err := executor.Execute(context.Background(), Command{
		Cmd: "nonexistent-command-xyz123",
	})

	failed := err != nil || result.Error != nil || result.ExitCode != 0
	if !failed {
		t.Error("Expected some indication of failure for nonexistent command")
	}
}

func TestExecute_Timeout(t *testing.T) {
	skipOnWindows(t)
	executor := NewExecutor("")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := executor.Execute(ctx, Command{Cmd: "sleep", Args: []string{"5"}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !errors.Is(result.Error, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", result.Error)
	}
}
