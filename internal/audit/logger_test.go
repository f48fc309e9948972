package audit

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testRecord(program string) Record {
	return NewRecord(program, []string{"-rf", "build"}, "WARN", "rm-recursive-force", false, "")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func fill(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", size-1)+"\n"), 0600))
}

func TestLogger_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.log")
	l := NewLogger(Options{Path: path, MaxSizeBytes: DefaultMaxSizeBytes, MaxBackups: 5}, nil)

	l.Record(testRecord("rm"))
	l.Record(testRecord("git"))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	for _, line := range lines {
		_, err := ParseLine(line)
		assert.NoError(t, err)
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestLogger_ConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	const writers, perWriter = 8, 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// a separate logger per writer uses its own lock descriptor,
			// the same as a separate process
			l := NewLogger(Options{Path: path, MaxSizeBytes: DefaultMaxSizeBytes, MaxBackups: 5, LockTimeout: 5 * time.Second}, nil)
			for i := 0; i < perWriter; i++ {
				l.Record(testRecord("rm"))
			}
		}()
	}
	wg.Wait()

	lines := readLines(t, path)
	require.Len(t, lines, writers*perWriter)
	ids := make(map[string]bool, len(lines))
	for _, line := range lines {
		rec, err := ParseLine(line)
		require.NoError(t, err, "interleaved line: %q", line)
		ids[rec.InvocationID] = true
	}
	assert.Len(t, ids, writers*perWriter)
}

func TestLogger_RotatesExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")
	const maxSize = 4096
	fill(t, path, maxSize)

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := NewLogger(Options{Path: path, MaxSizeBytes: maxSize, MaxBackups: 3, LockTimeout: 5 * time.Second}, nil)
			l.Record(testRecord("rm"))
		}()
	}
	wg.Wait()

	backup, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Len(t, backup, maxSize, "the full log must be rotated intact")

	_, err = os.Stat(path + ".2")
	assert.True(t, os.IsNotExist(err), "a second rotation happened")

	assert.Len(t, readLines(t, path), 10)
}

func TestLogger_RotationShiftsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")
	for i := 1; i <= 5; i++ {
		require.NoError(t, os.WriteFile(backupPath(path, i), []byte("backup "+string(rune('0'+i))+"\n"), 0600))
	}
	fill(t, path, 1024)

	l := NewLogger(Options{Path: path, MaxSizeBytes: 1024, MaxBackups: 5}, nil)
	l.Record(testRecord("git"))

	for i := 2; i <= 5; i++ {
		data, err := os.ReadFile(backupPath(path, i))
		require.NoError(t, err)
		assert.Equal(t, "backup "+string(rune('0'+i-1))+"\n", string(data), "backup .%d", i)
	}
	data, err := os.ReadFile(backupPath(path, 1))
	require.NoError(t, err)
	assert.Len(t, data, 1024)

	_, err = os.Stat(backupPath(path, 6))
	assert.True(t, os.IsNotExist(err), "backups must never exceed the bound")

	assert.Len(t, readLines(t, path), 1)
}

func TestLogger_RotationPrunesAboveLoweredBound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")
	for i := 1; i <= 7; i++ {
		require.NoError(t, os.WriteFile(backupPath(path, i), []byte("old\n"), 0600))
	}
	require.NoError(t, os.WriteFile(path+".keep", []byte("unrelated\n"), 0600))
	fill(t, path, 1024)

	l := NewLogger(Options{Path: path, MaxSizeBytes: 1024, MaxBackups: 3}, nil)
	l.Record(testRecord("git"))

	for i := 1; i <= 3; i++ {
		_, err := os.Stat(backupPath(path, i))
		assert.NoError(t, err, "backup .%d", i)
	}
	for i := 4; i <= 7; i++ {
		_, err := os.Stat(backupPath(path, i))
		assert.True(t, os.IsNotExist(err), "backup .%d must be removed", i)
	}
	_, err := os.Stat(path + ".keep")
	assert.NoError(t, err, "non-numbered files are left alone")
}

func TestLogger_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	fill(t, path, 512)
	require.NoError(t, os.WriteFile(path+".2", []byte("old\n"), 0600))

	l := NewLogger(Options{Path: path, MaxSizeBytes: 512, MaxBackups: 0}, nil)
	l.Record(testRecord("rm"))

	assert.Len(t, readLines(t, path), 1)
	_, err := os.Stat(path + ".1")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".2")
	assert.True(t, os.IsNotExist(err))
}

func TestLogger_BelowThresholdDoesNotRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	fill(t, path, 100)

	l := NewLogger(Options{Path: path, MaxSizeBytes: 4096, MaxBackups: 2}, nil)
	l.Record(testRecord("rm"))

	assert.Len(t, readLines(t, path), 2)
	_, err := os.Stat(path + ".1")
	assert.True(t, os.IsNotExist(err))
}

func TestLogger_FailuresAreSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	l := NewLogger(Options{Path: filepath.Join(blocker, "sub", "audit.log")}, zap.New(core))
	assert.NotPanics(t, func() { l.Record(testRecord("rm")) })

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "audit record dropped", logs.All()[0].Message)
}

func TestLogger_LockTimeout(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	path := filepath.Join(t.TempDir(), "audit.log")

	held, err := os.OpenFile(lockPath(path), os.O_CREATE|os.O_RDWR, 0600)
	require.NoError(t, err)
	defer held.Close()
	require.NoError(t, tryLockFile(held))
	defer unlockFile(held)

	l := NewLogger(Options{Path: path, LockTimeout: 30 * time.Millisecond}, zap.New(core))
	start := time.Now()
	l.Record(testRecord("rm"))
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "record must be dropped while the lock is held")
	require.Equal(t, 1, logs.Len())
	var logged error
	for _, f := range logs.All()[0].Context {
		if f.Key == "error" {
			logged, _ = f.Interface.(error)
		}
	}
	assert.ErrorIs(t, logged, ErrLockTimeout)
}
