//go:build linux

// Package acceptor owns the rendezvous socket. It claims the first free
// display name via a lock file, listens on $XDG_RUNTIME_DIR/<name>, and
// births a session for every connecting client.
package acceptor

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/logger"
	"github.com/rillwm/rill/internal/loop"
)

// maxDisplays bounds the wayland-N probe.
const maxDisplays = 32

// listenBacklog is the pending-connection queue depth.
const listenBacklog = 128

// Acceptor is the listening socket registered on the loop.
type Acceptor struct {
	lp       *loop.Loop
	fd       int
	lockFd   int
	path     string
	lockPath string
	name     string
	onConn   func(fd int)
}

// Install claims a display name, binds the socket, and registers it for
// readability. With an explicit name only that name is tried; otherwise
// the first free wayland-N, N>=0, is claimed. onConn receives each
// accepted, non-blocking, close-on-exec connection descriptor.
func Install(lp *loop.Loop, runtimeDir, explicitName string, onConn func(fd int)) (*Acceptor, error) {
	if runtimeDir == "" {
		return nil, fmt.Errorf("XDG_RUNTIME_DIR is not set")
	}

	a := &Acceptor{lp: lp, fd: -1, lockFd: -1, onConn: onConn}

	var names []string
	if explicitName != "" {
		names = []string{explicitName}
	} else {
		for n := 0; n < maxDisplays; n++ {
			names = append(names, fmt.Sprintf("wayland-%d", n))
		}
	}

	var lastErr error
	for _, name := range names {
		if err := a.claim(runtimeDir, name); err != nil {
			lastErr = err
			continue
		}
		logger.Info("Listening on display socket", "path", a.path)
		if err := lp.Register(a.fd, loop.Readable, a.onReadable); err != nil {
			a.Close()
			return nil, err
		}
		return a, nil
	}

	return nil, fmt.Errorf("no free display name: %w", lastErr)
}

// Name returns the claimed display name, suitable for WAYLAND_DISPLAY.
func (a *Acceptor) Name() string {
	return a.name
}

// claim takes the lock file for a name and binds its socket.
func (a *Acceptor) claim(runtimeDir, name string) error {
	path := filepath.Join(runtimeDir, name)
	lockPath := path + ".lock"

	lockFd, err := unix.Open(lockPath, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0644)
	if err != nil {
		return fmt.Errorf("open lock %s: %w", lockPath, err)
	}
	if err := unix.Flock(lockFd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = unix.Close(lockFd)
		return fmt.Errorf("display %s is in use", name)
	}

	// The lock is ours; a leftover socket from a dead server is stale.
	_ = os.Remove(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		_ = unix.Close(lockFd)
		return fmt.Errorf("socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		_ = unix.Close(lockFd)
		return fmt.Errorf("bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		_ = unix.Close(fd)
		_ = unix.Close(lockFd)
		_ = os.Remove(path)
		return fmt.Errorf("listen %s: %w", path, err)
	}

	a.fd = fd
	a.lockFd = lockFd
	a.path = path
	a.lockPath = lockPath
	a.name = name
	return nil
}

// onReadable drains the accept queue.
func (a *Acceptor) onReadable(loop.Mask) error {
	for {
		fd, _, err := unix.Accept4(a.fd, unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN {
				return nil
			}
			if err == unix.EINTR || err == unix.ECONNABORTED {
				continue
			}
			// Accept failure is fatal: without the rendezvous socket the
			// compositor serves nobody.
			return fmt.Errorf("accept: %w", err)
		}
		a.onConn(fd)
	}
}

// Close removes the socket and releases the display name.
func (a *Acceptor) Close() {
	if a.fd >= 0 {
		_ = a.lp.Deregister(a.fd)
		_ = unix.Close(a.fd)
		a.fd = -1
	}
	if a.path != "" {
		_ = os.Remove(a.path)
	}
	if a.lockFd >= 0 {
		_ = unix.Close(a.lockFd)
		a.lockFd = -1
	}
	if a.lockPath != "" {
		_ = os.Remove(a.lockPath)
	}
}
