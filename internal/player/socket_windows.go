//go:build windows

package player

import (
	"net"
	"path/filepath"
	"strings"

	"github.com/Microsoft/go-winio"
)

// dialMPVSocket connects to mpv's named pipe
func dialMPVSocket(socketPath string) (net.Conn, error) {
	if !strings.HasPrefix(socketPath, `\\.\pipe\`) {
		socketPath = `\\.\pipe\` + filepath.Base(socketPath)
	}
	timeout := ipcTimeout
	return winio.DialPipe(socketPath, &timeout)
}
