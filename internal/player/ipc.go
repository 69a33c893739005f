package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/alvarorichard/goanime-resolver/internal/util"
)

// ipcTimeout bounds one IPC round trip
const ipcTimeout = 2 * time.Second

// sendCommand writes one JSON command to the mpv IPC socket and returns the
// data field of the first reply. Event lines mpv interleaves are skipped.
func sendCommand(socketPath string, command []interface{}) (interface{}, error) {
	conn, err := dialMPVSocket(socketPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mpv socket")
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(ipcTimeout))

	payload, err := json.Marshal(map[string]interface{}{"command": command})
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, errors.Wrap(err, "failed to write mpv command")
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		util.Debug("mpv reply", "line", string(line))

		var reply struct {
			Event string      `json:"event"`
			Error string      `json:"error"`
			Data  interface{} `json:"data"`
		}
		if err := json.Unmarshal(line, &reply); err != nil || reply.Event != "" {
			continue
		}
		if reply.Error != "" && reply.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", reply.Error)
		}
		return reply.Data, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read mpv reply")
	}
	return nil, errors.New("no reply from mpv")
}
