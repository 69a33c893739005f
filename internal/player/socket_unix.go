//go:build !windows

package player

import (
	"net"
)

// dialMPVSocket connects to mpv's Unix domain IPC socket
func dialMPVSocket(socketPath string) (net.Conn, error) {
	return net.DialTimeout("unix", socketPath, ipcTimeout)
}
