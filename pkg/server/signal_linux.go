//go:build linux

package server

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// notifySignals forwards SIGINT and SIGTERM to the loop's eventfd. The
// forwarding goroutine runs outside the loop goroutine and touches nothing
// but the eventfd.
func notifySignals(fd int) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM)
	go func() {
		<-ch
		var one = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}
		_, _ = unix.Write(fd, one[:])
	}()
}
