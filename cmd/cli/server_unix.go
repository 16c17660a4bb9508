//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the server in its own process group so it survives the CLI
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
