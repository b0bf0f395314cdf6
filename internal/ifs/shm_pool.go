//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/clientmem"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlShmPool views one mapped client memory region and slices buffers out
// of it. The mapping is shared with every buffer created from the pool
// and survives pool destruction until the last buffer is gone.
type WlShmPool struct {
	id      object.ID
	c       *client.Client
	version uint32
	mem     *clientmem.Mem
	dead    bool
}

func (p *WlShmPool) ID() object.ID               { return p.id }
func (p *WlShmPool) Interface() *proto.Interface { return proto.WlShmPool }
func (p *WlShmPool) Version() uint32             { return p.version }

func (p *WlShmPool) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.ShmPoolCreateBuffer:
		return p.createBuffer(msg)

	case proto.ShmPoolDestroy:
		p.destroy()
		p.c.RemoveObject(p)
		return nil

	case proto.ShmPoolResize:
		if err := p.mem.Resize(int(msg.Int(0))); err != nil {
			return object.Errorf(p.id, shmErrInvalidFd, "resize failed: %v", err)
		}
		return nil

	default:
		return object.Errorf(p.id, object.ErrInvalidMethod, "invalid shm_pool request %d", opcode)
	}
}

func (p *WlShmPool) createBuffer(msg *wire.Message) error {
	id, err := p.c.NewClientID(msg.NewID(0))
	if err != nil {
		return err
	}
	offset := msg.Int(1)
	width := msg.Int(2)
	height := msg.Int(3)
	stride := msg.Int(4)
	format := msg.Uint(5)

	buf, err := NewWlBuffer(p.c, id, p.mem, int(offset), int(width), int(height), int(stride), format)
	if err != nil {
		return err
	}
	return p.c.AddObject(buf)
}

func (p *WlShmPool) destroy() {
	if p.dead {
		return
	}
	p.dead = true
	p.mem.Unref()
}

func (p *WlShmPool) BreakCycles() {
	p.destroy()
}
