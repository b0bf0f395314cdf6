//go:build linux

package ifs

import (
	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/clientmem"
	"github.com/rillwm/rill/internal/globals"
	"github.com/rillwm/rill/internal/logger"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// Shm error codes.
const (
	shmErrInvalidFormat uint32 = 0
	shmErrInvalidStride uint32 = 1
	shmErrInvalidFd     uint32 = 2
)

// Pixel formats advertised on bind.
const (
	FormatArgb8888 uint32 = 0
	FormatXrgb8888 uint32 = 1
)

// formatBpp maps supported formats to bytes per pixel.
var formatBpp = map[uint32]int{
	FormatArgb8888: 4,
	FormatXrgb8888: 4,
}

// WlShmGlobal advertises shared-memory buffer support.
type WlShmGlobal struct{}

func (g *WlShmGlobal) Interface() *proto.Interface { return proto.WlShm }
func (g *WlShmGlobal) Version() uint32             { return proto.WlShm.Version }

func (g *WlShmGlobal) Bind(c *client.Client, id object.ID, version uint32) error {
	shm := &WlShm{id: id, c: c, version: version}
	if err := c.AddObject(shm); err != nil {
		return err
	}
	for format := range formatBpp {
		shm.sendFormat(format)
	}
	return nil
}

var _ globals.Global = (*WlShmGlobal)(nil)

// WlShm is the per-client binding.
type WlShm struct {
	id      object.ID
	c       *client.Client
	version uint32
}

func (w *WlShm) ID() object.ID               { return w.id }
func (w *WlShm) Interface() *proto.Interface { return proto.WlShm }
func (w *WlShm) Version() uint32             { return w.version }

func (w *WlShm) sendFormat(format uint32) {
	w.c.Event(w.id, proto.ShmEvtFormat, func(f *wire.Formatter) {
		f.PutUint(format)
	})
}

func (w *WlShm) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.ShmCreatePool:
		return w.createPool(msg)
	default:
		return object.Errorf(w.id, object.ErrInvalidMethod, "invalid shm request %d", opcode)
	}
}

func (w *WlShm) createPool(msg *wire.Message) error {
	id, err := w.c.NewClientID(msg.NewID(0))
	if err != nil {
		return err
	}
	fd := msg.FD(1)
	size := msg.Int(2)

	if size <= 0 {
		_ = unix.Close(fd)
		return object.Errorf(w.id, shmErrInvalidFd, "invalid pool size %d", size)
	}
	mem, err := clientmem.New(fd, int(size))
	if err != nil {
		_ = unix.Close(fd)
		logger.Debug("Pool mapping failed", "client", w.c.ID(), "size", size, "error", err)
		return object.Errorf(w.id, shmErrInvalidFd, "cannot map pool: %v", err)
	}

	return w.c.AddObject(&WlShmPool{id: id, c: w.c, version: w.version, mem: mem})
}

func (w *WlShm) BreakCycles() {}
