// Package pid guards against two heatboard daemons feeding the same output.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/heatboard/internal/errors"
)

const fileName = "heatboard.pid"

// DefaultPath is the PID file used by the daemon.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), fileName)
}

// Write records the current process ID at path. It fails with
// ErrAlreadyRunning when path names a live process. A stale file is
// overwritten.
func Write(path string) error {
	errFactory := errors.New()

	if running, err := isRunning(path); err != nil {
		return err
	} else if running {
		return errFactory.New(errors.ErrAlreadyRunning)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func isRunning(path string) (bool, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errFactory.Wrap(errors.ErrInternal, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		// unreadable contents are treated as stale
		return false, nil
	}
	if pid == os.Getpid() {
		return false, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	return process.Signal(syscall.Signal(0)) == nil, nil
}

// Remove deletes the PID file at path. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}
