//go:build linux

package ifs

import (
	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// wl_data_source error codes.
const (
	dataSourceErrInvalidActionMask uint32 = 0
	dataSourceErrInvalidSource     uint32 = 1
	dataSourceErrAlreadySet        uint32 = 2
)

// WlDataSource is a clipboard or drag payload provider owned by one
// client. Peers reach it only through its offers.
type WlDataSource struct {
	id      object.ID
	c       *client.Client
	version uint32
	data    SourceData
}

// NewWlDataSource creates a source; the caller installs it.
func NewWlDataSource(c *client.Client, id object.ID, version uint32) *WlDataSource {
	return &WlDataSource{id: id, c: c, version: version}
}

func (s *WlDataSource) ID() object.ID               { return s.id }
func (s *WlDataSource) Interface() *proto.Interface { return proto.WlDataSource }
func (s *WlDataSource) Version() uint32             { return s.version }

// Client returns the owning session.
func (s *WlDataSource) Client() *client.Client { return s.c }

func (s *WlDataSource) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.DataSourceOffer:
		s.data.addMimeType(msg.Str(0))
		return nil

	case proto.DataSourceDestroy:
		s.breakSourceLoops()
		s.c.RemoveObject(s)
		return nil

	case proto.DataSourceSetActions:
		return s.setActions(msg.Uint(0))

	default:
		return object.Errorf(s.id, object.ErrInvalidMethod, "invalid data_source request %d", opcode)
	}
}

func (s *WlDataSource) setActions(actions uint32) error {
	if s.data.actionsSet {
		return object.Errorf(s.id, dataSourceErrAlreadySet, "source actions already set")
	}
	if actions&^DndAll != 0 {
		return object.Errorf(s.id, dataSourceErrInvalidActionMask, "invalid action mask 0x%x", actions)
	}
	s.data.actions = actions
	s.data.actionsSet = true
	return nil
}

// attachRole consumes the source for a selection or a drag. A source
// already consumed for either use cannot be reused.
func (s *WlDataSource) attachRole(role Role, seat *WlSeatGlobal) error {
	if s.data.role != RoleNone {
		return object.Errorf(s.id, dataSourceErrInvalidSource, "source has already been used")
	}
	s.data.role = role
	s.data.seat = seat
	return nil
}

// SendTarget tells the source which type the receiver accepted, nil when
// the target revoked acceptance or went away.
func (s *WlDataSource) SendTarget(mime *string) {
	s.c.Event(s.id, proto.DataSourceEvtTarget, func(f *wire.Formatter) {
		f.PutOptString(mime)
	})
}

// SendSend hands the payload descriptor to the source for writing. The
// descriptor moves into the event queue and is closed after transmission.
func (s *WlDataSource) SendSend(mime string, fd int) {
	if s.c.Dead() {
		_ = unix.Close(fd)
		return
	}
	s.c.Event(s.id, proto.DataSourceEvtSend, func(f *wire.Formatter) {
		f.PutString(mime)
		f.PutFd(fd)
	})
}

// SendCancelled tells the source its session ended without a transfer.
func (s *WlDataSource) SendCancelled() {
	s.c.Event(s.id, proto.DataSourceEvtCancelled, nil)
}

// SendDndDropPerformed reports the pointer release to the source.
func (s *WlDataSource) SendDndDropPerformed() {
	if s.version < 3 {
		return
	}
	s.c.Event(s.id, proto.DataSourceEvtDndDropPerformed, nil)
}

// SendDndFinished reports session completion to the source.
func (s *WlDataSource) SendDndFinished() {
	if s.version < 3 {
		return
	}
	s.c.Event(s.id, proto.DataSourceEvtDndFinished, nil)
}

// SendAction publishes the current action resolution to the source.
func (s *WlDataSource) SendAction(action uint32) {
	if s.version < 3 {
		return
	}
	s.c.Event(s.id, proto.DataSourceEvtAction, func(f *wire.Formatter) {
		f.PutUint(action)
	})
}

func (s *WlDataSource) BreakCycles() {
	s.breakSourceLoops()
}
