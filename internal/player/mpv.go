// Package player launches mpv for a resolved episode and exposes the running
// process as a decoder the playback machine can close.
package player

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

// ErrPlaybackFailed means mpv exited without playing the source
var ErrPlaybackFailed = errors.New("playback failed")

// socketWait bounds how long Launch waits for the IPC socket
const socketWait = 3 * time.Second

// Options configures the player
type Options struct {
	// Binary is the mpv executable; empty means "mpv" from PATH
	Binary string
	// ExtraArgs are passed before the link
	ExtraArgs []string
}

// Session is one running mpv process
type Session struct {
	cmd        *exec.Cmd
	socketPath string
	stderr     *bytes.Buffer

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
}

// BuildArgs returns the mpv arguments for a resolution. Header overrides are
// passed with --http-header-fields so mpv can fetch sources that need a
// Referer without going through a proxy.
func BuildArgs(res models.Result, socketPath, title string, extra []string) []string {
	args := []string{
		"--no-terminal",
		"--quiet",
		"--input-ipc-server=" + socketPath,
	}
	if title != "" {
		args = append(args, "--force-media-title="+title)
	}
	if len(res.Headers) > 0 {
		keys := make([]string, 0, len(res.Headers))
		for k := range res.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make([]string, 0, len(keys))
		for _, k := range keys {
			// mpv splits the list on commas
			fields = append(fields, k+": "+strings.ReplaceAll(res.Headers[k], ",", `\,`))
		}
		args = append(args, "--http-header-fields="+strings.Join(fields, ","))
	}
	args = append(args, extra...)
	return args
}

// Launch starts mpv on link and waits until its IPC socket is up
func Launch(ctx context.Context, opts Options, res models.Result, link, title string) (*Session, error) {
	binary := opts.Binary
	if binary == "" {
		var err error
		if binary, err = findMPVPath(); err != nil {
			return nil, errors.New("mpv not found in PATH. Please install mpv: https://mpv.io/installation/")
		}
	}

	socketPath := newSocketPath()
	args := append(BuildArgs(res, socketPath, title, opts.ExtraArgs), link)
	util.Debug("starting mpv", "binary", binary, "args", args)

	cmd := exec.CommandContext(ctx, binary, args...)
	setProcessGroup(cmd)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start mpv (stderr: %s)", stderr.String())
	}

	s := &Session{cmd: cmd, socketPath: socketPath, stderr: &stderr, done: make(chan struct{})}
	go func() {
		s.waitErr = cmd.Wait()
		close(s.done)
	}()

	started := time.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if socketReady(socketPath) {
			util.Debug("mpv socket ready", "after", time.Since(started))
			return s, nil
		}
		select {
		case <-s.done:
			return nil, errors.Wrapf(ErrPlaybackFailed, "mpv exited prematurely: %s", strings.TrimSpace(stderr.String()))
		case <-ctx.Done():
			_ = s.Close()
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if time.Since(started) > socketWait {
			_ = s.Close()
			return nil, fmt.Errorf("timeout waiting for mpv socket %s", socketPath)
		}
	}
}

// Wait blocks until mpv exits. A non-zero exit status, which mpv uses when
// the file could not be played, is reported as ErrPlaybackFailed.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.waitErr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(s.waitErr, &exitErr) {
		return errors.Wrapf(ErrPlaybackFailed, "mpv exit status %d", exitErr.ExitCode())
	}
	return s.waitErr
}

// Close asks mpv to quit over IPC and kills it when it does not comply
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		select {
		case <-s.done:
			return
		default:
		}

		if _, qerr := sendCommand(s.socketPath, []interface{}{"quit"}); qerr != nil {
			util.Debug("mpv quit over IPC failed", "error", qerr)
		}
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
			if s.cmd.Process != nil {
				err = s.cmd.Process.Kill()
			}
			<-s.done
		}
		removeSocket(s.socketPath)
	})
	return err
}
