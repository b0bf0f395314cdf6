//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlSurface carries just enough surface identity for focus and drag
// bookkeeping: a client owner and at most one attached buffer.
type WlSurface struct {
	id      object.ID
	c       *client.Client
	version uint32

	pending *WlBuffer // attached since last commit
	current *WlBuffer // committed content
}

// NewWlSurface creates a surface; the caller installs it.
func NewWlSurface(c *client.Client, id object.ID, version uint32) *WlSurface {
	return &WlSurface{id: id, c: c, version: version}
}

func (s *WlSurface) ID() object.ID               { return s.id }
func (s *WlSurface) Interface() *proto.Interface { return proto.WlSurface }
func (s *WlSurface) Version() uint32             { return s.version }

// Client returns the owning session; the seat uses it to route focus.
func (s *WlSurface) Client() *client.Client { return s.c }

func (s *WlSurface) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.SurfaceDestroy:
		s.detach()
		s.c.RemoveObject(s)
		return nil

	case proto.SurfaceAttach:
		bufID := object.ID(msg.Object(0))
		if bufID == 0 {
			s.pending = nil
			return nil
		}
		o, ok := s.c.Get(bufID)
		if !ok {
			return object.Errorf(s.id, object.ErrInvalidObject, "attach of unknown buffer %s", bufID)
		}
		buf, ok := o.(*WlBuffer)
		if !ok {
			return object.Errorf(s.id, object.ErrInvalidObject, "attach of non-buffer object %s", bufID)
		}
		s.pending = buf
		return nil

	case proto.SurfaceCommit:
		if s.current != nil && s.current != s.pending {
			s.current.detachSurface(s)
			s.current.SendRelease()
		}
		s.current = s.pending
		if s.current != nil {
			s.current.attachSurface(s)
		}
		return nil

	default:
		return object.Errorf(s.id, object.ErrInvalidMethod, "invalid surface request %d", opcode)
	}
}

func (s *WlSurface) detach() {
	if s.current != nil {
		s.current.detachSurface(s)
		s.current = nil
	}
	s.pending = nil
}

func (s *WlSurface) BreakCycles() {
	s.detach()
}
