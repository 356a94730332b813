//go:build windows

package ptyhost

import "os/exec"

func hangup(proc *process) {
	if proc.cmd.Process != nil {
		_ = proc.cmd.Process.Kill()
	}
}

func signalExitCode(*exec.ExitError) int {
	return -1
}
