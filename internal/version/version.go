package version

import (
	"fmt"
	"io"
	"runtime"

	"github.com/alvarorichard/goanime-resolver/internal/slugcache"
)

const (
	Version = "0.3.0"
)

// Revision is set at build time with -ldflags "-X ...version.Revision=<sha>"
var Revision = "dev"

// ShowVersion writes the version line and the SQLite driver backing the
// persistent slug cache
func ShowVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "goanime-resolver v%s (%s) %s/%s\n", Version, Revision, runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(w, "slug cache: %s\n", slugcache.DriverDescription)
}
