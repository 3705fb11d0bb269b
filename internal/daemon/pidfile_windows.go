//go:build windows

package daemon

import (
	"os"
	"os/exec"
	"syscall"
)

func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// terminate kills outright; Windows has no SIGTERM delivery.
func terminate(pid int) error { return kill(pid) }

func kill(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

// Detach is a no-op on Windows.
func Detach(_ *exec.Cmd) {}

// ShutdownSignals are the signals that stop the server gracefully.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
