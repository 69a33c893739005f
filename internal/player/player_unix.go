//go:build !windows

package player

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// setProcessGroup detaches mpv from the terminal's process group so a
// Ctrl+C in the CLI does not reach it before Close does
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// findMPVPath searches for mpv in PATH
func findMPVPath() (string, error) {
	return exec.LookPath("mpv")
}

// newSocketPath returns a fresh socket path in the temp dir.
// filepath.Join copes with the trailing slash os.TempDir has on macOS.
func newSocketPath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("goanime_resolver_mpv_%x", time.Now().UnixNano()))
}

func socketReady(socketPath string) bool {
	_, err := os.Stat(socketPath)
	return err == nil
}

func removeSocket(socketPath string) {
	_ = os.Remove(socketPath)
}
