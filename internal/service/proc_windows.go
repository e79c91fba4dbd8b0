//go:build windows

package service

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}

// terminateProcess has no graceful variant on windows
func terminateProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func killProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
