//go:build !unix

package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Without execve, Exec runs the real program as a child instead.
const canReplaceProcess = false

func replaceProcess(string, []string, []string) error {
	return errors.New("process replacement not supported")
}

func executableCandidates(dir, program string) []string {
	if filepath.Ext(program) != "" {
		return []string{filepath.Join(dir, program)}
	}
	exts := strings.Split(strings.ToLower(os.Getenv("PATHEXT")), ";")
	if len(exts) == 0 || exts[0] == "" {
		exts = []string{".com", ".exe", ".bat", ".cmd"}
	}
	candidates := make([]string, 0, len(exts))
	for _, ext := range exts {
		if ext != "" {
			candidates = append(candidates, filepath.Join(dir, program+ext))
		}
	}
	return candidates
}

func isExecutable(fs.FileInfo) bool {
	return true
}
