//go:build cgo

package slugcache

import (
	"fmt"
	"runtime"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const (
	driverName  = "sqlite3"
	busyTimeout = 5000
)

// DriverDescription names the SQLite driver compiled into this build
const DriverDescription = "mattn/go-sqlite3 (cgo)"

func dsn(dbPath string) string {
	if runtime.GOOS == "windows" {
		dbPath = strings.ReplaceAll(dbPath, "\\", "/")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d", dbPath, busyTimeout)
}
