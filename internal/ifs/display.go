//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/globals"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlDisplay is the implicit singleton at object id 1 through which a
// client bootstraps: sync for round-trip fencing, get_registry for
// global discovery.
type WlDisplay struct {
	c       *client.Client
	globals *globals.Globals
	serials *Serials
}

// NewWlDisplay installs the display object into a fresh client's table.
func NewWlDisplay(c *client.Client, gs *globals.Globals, serials *Serials) (*WlDisplay, error) {
	d := &WlDisplay{c: c, globals: gs, serials: serials}
	if err := c.AddObject(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *WlDisplay) ID() object.ID              { return object.DisplayID }
func (d *WlDisplay) Interface() *proto.Interface { return proto.WlDisplay }
func (d *WlDisplay) Version() uint32             { return 1 }

func (d *WlDisplay) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.DisplaySync:
		return d.sync(msg)
	case proto.DisplayGetRegistry:
		return d.getRegistry(msg)
	default:
		return object.Errorf(d.ID(), object.ErrInvalidMethod, "invalid display request %d", opcode)
	}
}

// sync answers with done on a fresh callback, then retires the callback.
func (d *WlDisplay) sync(msg *wire.Message) error {
	id, err := d.c.NewClientID(msg.NewID(0))
	if err != nil {
		return err
	}
	cb := &WlCallback{id: id, c: d.c}
	if err := d.c.AddObject(cb); err != nil {
		return err
	}
	cb.SendDone(d.serials.Next())
	d.c.RemoveObject(cb)
	return nil
}

func (d *WlDisplay) getRegistry(msg *wire.Message) error {
	id, err := d.c.NewClientID(msg.NewID(0))
	if err != nil {
		return err
	}
	_, err = NewWlRegistry(d.c, id, d.globals)
	return err
}

func (d *WlDisplay) BreakCycles() {}
