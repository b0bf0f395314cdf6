//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlTouch exists so clients binding all seat devices get a valid object;
// the seat does not advertise the touch capability.
type WlTouch struct {
	id      object.ID
	c       *client.Client
	version uint32
}

func (t *WlTouch) ID() object.ID               { return t.id }
func (t *WlTouch) Interface() *proto.Interface { return proto.WlTouch }
func (t *WlTouch) Version() uint32             { return t.version }

func (t *WlTouch) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.TouchRelease:
		t.c.RemoveObject(t)
		return nil
	default:
		return object.Errorf(t.id, object.ErrInvalidMethod, "invalid touch request %d", opcode)
	}
}

func (t *WlTouch) BreakCycles() {}
