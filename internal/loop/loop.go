//go:build linux

// Package loop implements the single-threaded level-triggered readiness
// multiplexer every other component hangs off. File descriptors are
// registered with an interest mask and a handler; Run dispatches readiness
// to handlers one at a time, then gives the scheduler a turn, and repeats
// until shutdown is requested, a handler fails, or the last fd is
// deregistered.
package loop

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/logger"
)

// Mask is a set of readiness conditions.
type Mask uint32

const (
	Readable Mask = 1 << iota
	Writable
	Hup
	Err
)

func (m Mask) String() string {
	s := ""
	if m&Readable != 0 {
		s += "r"
	}
	if m&Writable != 0 {
		s += "w"
	}
	if m&Hup != 0 {
		s += "h"
	}
	if m&Err != 0 {
		s += "e"
	}
	return s
}

func (m Mask) epollEvents() uint32 {
	var ev uint32
	if m&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if m&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	// HUP and ERR are always reported by epoll; no opt-in needed.
	return ev
}

func maskFromEpoll(ev uint32) Mask {
	var m Mask
	if ev&unix.EPOLLIN != 0 {
		m |= Readable
	}
	if ev&unix.EPOLLOUT != 0 {
		m |= Writable
	}
	if ev&unix.EPOLLHUP != 0 {
		m |= Hup
	}
	if ev&unix.EPOLLERR != 0 {
		m |= Err
	}
	return m
}

// Handler receives the readiness conditions observed for its fd. Handlers
// run to completion before the next dispatch; returning an error
// terminates the loop with that error.
type Handler func(Mask) error

type registration struct {
	fd      int
	mask    Mask
	handler Handler
}

// Loop is the epoll-backed event loop. It is not safe for concurrent use;
// all methods must be called from the loop goroutine (or before Run).
type Loop struct {
	epfd     int
	handlers map[int]*registration

	stopped bool
	stopErr error

	// onTurn runs after each dispatch batch; the runtime points it at the
	// async engine so tasks woken by handlers execute before the next wait.
	onTurn func()
}

// New creates an event loop.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &Loop{
		epfd:     epfd,
		handlers: make(map[int]*registration),
	}, nil
}

// OnTurn installs the per-iteration hook.
func (l *Loop) OnTurn(fn func()) {
	l.onTurn = fn
}

// Register adds an fd with an interest mask and handler.
func (l *Loop) Register(fd int, mask Mask, h Handler) error {
	if _, ok := l.handlers[fd]; ok {
		return fmt.Errorf("fd %d already registered", fd)
	}
	ev := unix.EpollEvent{Events: mask.epollEvents(), Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl add fd %d: %w", fd, err)
	}
	l.handlers[fd] = &registration{fd: fd, mask: mask, handler: h}
	return nil
}

// Modify changes the interest mask of a registered fd.
func (l *Loop) Modify(fd int, mask Mask) error {
	reg, ok := l.handlers[fd]
	if !ok {
		return fmt.Errorf("fd %d not registered", fd)
	}
	if reg.mask == mask {
		return nil
	}
	ev := unix.EpollEvent{Events: mask.epollEvents(), Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl mod fd %d: %w", fd, err)
	}
	reg.mask = mask
	return nil
}

// Deregister removes an fd. The fd itself is not closed.
func (l *Loop) Deregister(fd int) error {
	if _, ok := l.handlers[fd]; !ok {
		return fmt.Errorf("fd %d not registered", fd)
	}
	delete(l.handlers, fd)
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

// Stop requests loop termination. A nil error is a clean shutdown.
func (l *Loop) Stop(err error) {
	l.stopped = true
	if l.stopErr == nil {
		l.stopErr = err
	}
}

// Run dispatches readiness until Stop is called, a handler returns an
// error, or all handlers are deregistered.
func (l *Loop) Run() error {
	events := make([]unix.EpollEvent, 64)

	if l.onTurn != nil {
		l.onTurn()
	}

	for !l.stopped && len(l.handlers) > 0 {
		n, err := unix.EpollWait(l.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			reg, ok := l.handlers[fd]
			if !ok {
				// Deregistered by an earlier handler in this batch.
				continue
			}
			m := maskFromEpoll(events[i].Events)
			if err := reg.handler(m); err != nil {
				logger.Error("Event loop handler failed", "fd", fd, "mask", m.String(), "error", err)
				l.Stop(err)
				break
			}
		}

		if l.onTurn != nil {
			l.onTurn()
		}
	}

	return l.stopErr
}

// Close releases the epoll instance.
func (l *Loop) Close() {
	_ = unix.Close(l.epfd)
	l.epfd = -1
}
