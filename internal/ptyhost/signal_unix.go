//go:build !windows

package ptyhost

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// hangup delivers SIGHUP the way a closing terminal would.
func hangup(proc *process) {
	if proc.cmd.Process == nil {
		return
	}
	_ = unix.Kill(proc.cmd.Process.Pid, unix.SIGHUP)
}

// signalExitCode follows the shell convention of 128+signal.
func signalExitCode(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return -1
}
