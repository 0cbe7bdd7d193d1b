//go:build !windows

package proc

import (
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Kill the process group so script-spawned children die with the wrapper.
func killTree(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
