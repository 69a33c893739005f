//go:build windows

package player

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/alvarorichard/goanime-resolver/internal/util"
)

func setProcessGroup(cmd *exec.Cmd) {
	util.Debug("process groups are not used on windows", "command", cmd.String())
}

// findMPVPath looks in PATH, then next to the executable
func findMPVPath() (string, error) {
	if path, err := exec.LookPath("mpv"); err == nil {
		return path, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	candidate := filepath.Join(filepath.Dir(exe), "mpv.exe")
	if _, err := os.Stat(candidate); err != nil {
		return "", err
	}
	return candidate, nil
}

func newSocketPath() string {
	return fmt.Sprintf(`\\.\pipe\goanime_resolver_mpv_%x`, time.Now().UnixNano())
}

func socketReady(socketPath string) bool {
	_, err := os.Stat(socketPath)
	return err == nil
}

// removeSocket is a no-op: named pipes go away with the process
func removeSocket(string) {}
