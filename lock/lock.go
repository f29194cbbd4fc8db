// Package lock implements the single-instance sentinel (spec §4.10): a
// file naming the running engine's PID, used to best-effort terminate a
// stale previous instance before a new one takes over. This is
// deliberately best-effort and never blocks arpeggiation.
package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// File is a PID lock file at a fixed path.
type File struct {
	path string
	pid  int
}

// Acquire terminates any live previous instance named in the lock file
// at path, then writes the current process's PID. Failures are logged
// to the returned warnings slice rather than treated as fatal — a stuck
// or unwritable lock file must never prevent the engine from starting.
func Acquire(path string) (*File, []string) {
	var warnings []string
	pid := os.Getpid()

	if data, err := os.ReadFile(path); err == nil {
		if oldPID, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && oldPID != pid {
			if processAlive(oldPID) {
				warnings = append(warnings, fmt.Sprintf("found previous instance (pid %d), terminating", oldPID))
				if err := syscall.Kill(oldPID, syscall.SIGTERM); err != nil {
					warnings = append(warnings, fmt.Sprintf("insufficient permission to terminate pid %d: %v", oldPID, err))
				} else {
					waitForExit(oldPID, 10, 300*time.Millisecond)
				}
			}
		}
		_ = os.Remove(path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		warnings = append(warnings, fmt.Sprintf("could not create lock file: %v", err))
	}

	return &File{path: path, pid: pid}, warnings
}

// Release removes the lock file if it still names this process.
func (f *File) Release() {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return
	}
	if strings.TrimSpace(string(data)) == strconv.Itoa(f.pid) {
		_ = os.Remove(f.path)
	}
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func waitForExit(pid int, attempts int, interval time.Duration) {
	for i := 0; i < attempts; i++ {
		time.Sleep(interval)
		if !processAlive(pid) {
			return
		}
	}
	_ = syscall.Kill(pid, syscall.SIGKILL)
}
