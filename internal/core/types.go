package core

// Exit codes of a wrapped invocation. Allowed invocations exit with the real
// program's status.
const (
	// ExitBlocked is returned when a rule blocks the invocation. It lies
	// outside the range commonly used by the wrapped tools.
	ExitBlocked = 77
	// ExitNotFound mirrors the shell's "command not found".
	ExitNotFound = 127
	// ExitInternal reports a failure of guard itself.
	ExitInternal = 1
)

// Command is a program invocation run with captured output.
type Command struct {
	Cmd  string
	Args []string
}
