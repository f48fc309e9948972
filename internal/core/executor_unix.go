//go:build unix

package core

import (
	"io/fs"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const canReplaceProcess = true

func replaceProcess(path string, argv, env []string) error {
	return unix.Exec(path, argv, env)
}

func executableCandidates(dir, program string) []string {
	return []string{filepath.Join(dir, program)}
}

func isExecutable(info fs.FileInfo) bool {
	return info.Mode().Perm()&0111 != 0
}
