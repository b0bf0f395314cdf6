//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/fixed"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlPointer delivers pointer focus and motion to one client.
type WlPointer struct {
	id      object.ID
	c       *client.Client
	version uint32
	global  *WlSeatGlobal
}

func (p *WlPointer) ID() object.ID               { return p.id }
func (p *WlPointer) Interface() *proto.Interface { return proto.WlPointer }
func (p *WlPointer) Version() uint32             { return p.version }

func (p *WlPointer) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.PointerSetCursor:
		// Cursor imagery is rendering policy; the request is validated and
		// accepted so clients are not punished for sending it.
		return nil
	case proto.PointerRelease:
		p.untrack()
		p.c.RemoveObject(p)
		return nil
	default:
		return object.Errorf(p.id, object.ErrInvalidMethod, "invalid pointer request %d", opcode)
	}
}

func (p *WlPointer) SendEnter(serial uint32, s *WlSurface, x, y fixed.Fixed) {
	p.c.Event(p.id, proto.PointerEvtEnter, func(f *wire.Formatter) {
		f.PutUint(serial)
		f.PutObject(uint32(s.id))
		f.PutFixed(x)
		f.PutFixed(y)
	})
}

func (p *WlPointer) SendLeave(serial uint32, s *WlSurface) {
	p.c.Event(p.id, proto.PointerEvtLeave, func(f *wire.Formatter) {
		f.PutUint(serial)
		f.PutObject(uint32(s.id))
	})
}

func (p *WlPointer) SendMotion(time uint32, x, y fixed.Fixed) {
	p.c.Event(p.id, proto.PointerEvtMotion, func(f *wire.Formatter) {
		f.PutUint(time)
		f.PutFixed(x)
		f.PutFixed(y)
	})
}

func (p *WlPointer) SendButton(serial, time, button, state uint32) {
	p.c.Event(p.id, proto.PointerEvtButton, func(f *wire.Formatter) {
		f.PutUint(serial)
		f.PutUint(time)
		f.PutUint(button)
		f.PutUint(state)
	})
}

func (p *WlPointer) untrack() {
	if p.global == nil {
		return
	}
	cid := p.c.ID()
	ps := p.global.pointers[cid]
	for i, other := range ps {
		if other == p {
			p.global.pointers[cid] = append(ps[:i], ps[i+1:]...)
			break
		}
	}
	if len(p.global.pointers[cid]) == 0 {
		delete(p.global.pointers, cid)
	}
	p.global = nil
}

func (p *WlPointer) BreakCycles() {
	p.untrack()
}
