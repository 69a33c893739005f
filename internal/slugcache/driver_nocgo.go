//go:build !cgo

package slugcache

import (
	"fmt"
	"runtime"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	busyTimeout = 5000
)

// DriverDescription names the SQLite driver compiled into this build
const DriverDescription = "modernc.org/sqlite (pure Go)"

func dsn(dbPath string) string {
	if runtime.GOOS == "windows" {
		dbPath = strings.ReplaceAll(dbPath, "\\", "/")
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(%d)", dbPath, busyTimeout)
}
