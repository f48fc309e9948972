package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrLockTimeout is reported when the log lock could not be acquired in time.
var ErrLockTimeout = errors.New("audit log lock timeout")

const (
	// DefaultMaxSizeBytes is the rotation threshold of the active log.
	DefaultMaxSizeBytes = 10 * 1024 * 1024
	// DefaultMaxBackups is how many rotated files are kept.
	DefaultMaxBackups = 5
	// DefaultLockTimeout bounds how long a writer waits for the lock.
	DefaultLockTimeout = 250 * time.Millisecond

	lockRetryInterval = 5 * time.Millisecond
)

// Options configures a Logger.
type Options struct {
	Path         string
	MaxSizeBytes int64
	// MaxBackups of 0 discards the active log on rotation.
	MaxBackups  int
	LockTimeout time.Duration
}

// Logger appends records to the audit log. Any number of Logger values, in
// one process or many, may write the same log concurrently: every write and
// every rotation happens under an advisory lock on "<path>.lock".
type Logger struct {
	opts Options
	log  *zap.Logger
}

// NewLogger creates a new audit logger. Failures are reported to log.
func NewLogger(opts Options, log *zap.Logger) *Logger {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.MaxBackups < 0 {
		opts.MaxBackups = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{opts: opts, log: log}
}

// Path returns the active log file.
func (l *Logger) Path() string {
	return l.opts.Path
}

// Record appends rec to the log. It never fails the caller: a record that
// cannot be written is dropped and reported on the error channel.
func (l *Logger) Record(rec Record) {
	defer func() {
		if p := recover(); p != nil {
			l.log.Error("audit logger panic", zap.Any("panic", p))
		}
	}()

	if err := l.write([]byte(rec.Format() + "\n")); err != nil {
		l.log.Warn("audit record dropped",
			zap.String("path", l.opts.Path),
			zap.String("invocation_id", rec.InvocationID),
			zap.Error(err),
		)
	}
}

func (l *Logger) write(line []byte) error {
	if l.opts.Path == "" {
		return fmt.Errorf("audit log path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(l.opts.Path), 0700); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	lockFile, err := os.OpenFile(lockPath(l.opts.Path), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock: %w", err)
	}
	defer lockFile.Close()

	if err := l.acquire(lockFile); err != nil {
		return err
	}
	defer func() {
		_ = unlockFile(lockFile)
	}()

	if err := l.rotateIfNeeded(); err != nil {
		return fmt.Errorf("rotate: %w", err)
	}

	f, err := os.OpenFile(l.opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write log: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync log: %w", err)
	}
	return f.Close()
}

func (l *Logger) acquire(lockFile *os.File) error {
	deadline := time.Now().Add(l.opts.LockTimeout)
	for {
		err := tryLockFile(lockFile)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errWouldBlock) {
			return fmt.Errorf("lock: %w", err)
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(lockRetryInterval)
	}
}

// rotateIfNeeded must be called with the lock held. A writer that finds the
// active log below the threshold does nothing, so each crossing rotates
// exactly once no matter how many writers observed it.
func (l *Logger) rotateIfNeeded() error {
	if l.opts.MaxSizeBytes <= 0 {
		return nil
	}
	info, err := os.Stat(l.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < l.opts.MaxSizeBytes {
		return nil
	}

	if err := pruneBackups(l.opts.Path, l.opts.MaxBackups); err != nil {
		return err
	}
	if l.opts.MaxBackups == 0 {
		return os.Remove(l.opts.Path)
	}

	if err := removeIfExists(backupPath(l.opts.Path, l.opts.MaxBackups)); err != nil {
		return err
	}
	for i := l.opts.MaxBackups - 1; i >= 1; i-- {
		err := os.Rename(backupPath(l.opts.Path, i), backupPath(l.opts.Path, i+1))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return os.Rename(l.opts.Path, backupPath(l.opts.Path, 1))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// pruneBackups removes numbered backups above keep, left behind when the
// configured bound was lowered.
func pruneBackups(path string, keep int) error {
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		return err
	}
	prefix := filepath.Base(path) + "."
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
		if err != nil || n <= keep {
			continue
		}
		if err := removeIfExists(filepath.Join(filepath.Dir(path), name)); err != nil {
			return err
		}
	}
	return nil
}

func lockPath(path string) string {
	return path + ".lock"
}

func backupPath(path string, n int) string {
	return path + "." + strconv.Itoa(n)
}
