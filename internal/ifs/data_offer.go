//go:build linux

package ifs

import (
	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// wl_data_offer error codes.
const (
	dataOfferErrInvalidFinish     uint32 = 0
	dataOfferErrInvalidActionMask uint32 = 1
	dataOfferErrInvalidAction     uint32 = 2
)

// WlDataOffer is the receiver-side handle onto a data source. The server
// allocates its id; one source may have many live offers, all observing
// the same shared state.
type WlDataOffer struct {
	id      object.ID
	c       *client.Client // receiving client
	version uint32
	source  *WlDataSource // nil once the session died
	device  *WlDataDevice
}

// newWlDataOffer creates and installs an offer in the receiver's table at
// a server-range id, announces it through the device, and replays the
// source's offered types.
func newWlDataOffer(dev *WlDataDevice, src *WlDataSource) *WlDataOffer {
	c := dev.c
	o := &WlDataOffer{
		id:      c.AllocServerID(),
		c:       c,
		version: dev.version,
		source:  src,
		device:  dev,
	}
	if err := c.AddObject(o); err != nil {
		// Server-range ids are unique by construction.
		return nil
	}
	src.addOffer(o)
	dev.SendDataOffer(o)
	for _, mime := range src.data.mimeTypes {
		o.SendOffer(mime)
	}
	return o
}

func (o *WlDataOffer) ID() object.ID               { return o.id }
func (o *WlDataOffer) Interface() *proto.Interface { return proto.WlDataOffer }
func (o *WlDataOffer) Version() uint32             { return o.version }

func (o *WlDataOffer) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.DataOfferAccept:
		return o.accept(msg.Uint(0), msg.OptStr(1))

	case proto.DataOfferReceive:
		o.receive(msg.Str(0), msg.FD(1))
		return nil

	case proto.DataOfferDestroy:
		if o.source != nil {
			o.source.removeOffer(o)
			o.source = nil
		}
		o.c.RemoveObject(o)
		return nil

	case proto.DataOfferFinish:
		return o.finish()

	case proto.DataOfferSetActions:
		return o.setActions(msg.Uint(0), msg.Uint(1))

	default:
		return object.Errorf(o.id, object.ErrInvalidMethod, "invalid data_offer request %d", opcode)
	}
}

// accept records whether the receiver can take the payload in some type
// and forwards the choice to the source. ACCEPTED is only meaningful
// while the receiver is focused; leave resets it through the shared
// state.
func (o *WlDataOffer) accept(serial uint32, mime *string) error {
	src := o.source
	if src == nil {
		return nil
	}
	if mime != nil {
		src.data.shared.state |= offerStateAccepted
	} else {
		src.data.shared.state &^= offerStateAccepted
	}
	src.SendTarget(mime)
	if src.data.actionsSet {
		src.updateSelectedAction()
	}
	return nil
}

// receive forwards the transfer request: the descriptor the receiver
// supplied moves to the source, which writes the payload and closes its
// end. A dead session just closes the descriptor.
func (o *WlDataOffer) receive(mime string, fd int) {
	if o.source == nil {
		_ = unix.Close(fd)
		return
	}
	o.source.SendSend(mime, fd)
}

// finish completes a drag session. Finishing before a drop or without
// acceptance is a protocol error on the offer.
func (o *WlDataOffer) finish() error {
	src := o.source
	if src == nil {
		return object.Errorf(o.id, dataOfferErrInvalidFinish, "finish on dead offer")
	}
	if src.data.role != RoleDrag {
		return object.Errorf(o.id, dataOfferErrInvalidFinish, "finish on a selection offer")
	}
	if !src.data.shared.Dropped() {
		return object.Errorf(o.id, dataOfferErrInvalidFinish, "finish before drop")
	}
	if !src.data.shared.Accepted() {
		return object.Errorf(o.id, dataOfferErrInvalidFinish, "finish without accept")
	}

	src.SendDndFinished()
	if seat := src.data.seat; seat != nil {
		seat.endDragSession(src)
	}
	return nil
}

// setActions records the receiver's action mask and preference, then
// recomputes the resolution.
func (o *WlDataOffer) setActions(actions, preferred uint32) error {
	if actions&^DndAll != 0 {
		return object.Errorf(o.id, dataOfferErrInvalidActionMask, "invalid action mask 0x%x", actions)
	}
	if preferred&(preferred-1) != 0 || preferred&^DndAll != 0 {
		return object.Errorf(o.id, dataOfferErrInvalidAction, "preferred action 0x%x is not a single action", preferred)
	}
	src := o.source
	if src == nil {
		return nil
	}
	src.data.shared.receiverActions = actions
	src.data.shared.receiverPreferred = preferred
	if src.data.actionsSet {
		src.updateSelectedAction()
	}
	return nil
}

// SendOffer advertises one MIME type.
func (o *WlDataOffer) SendOffer(mime string) {
	o.c.Event(o.id, proto.DataOfferEvtOffer, func(f *wire.Formatter) {
		f.PutString(mime)
	})
}

// SendSourceActions publishes the source's action mask.
func (o *WlDataOffer) SendSourceActions(actions uint32) {
	if o.version < 3 {
		return
	}
	o.c.Event(o.id, proto.DataOfferEvtSourceActions, func(f *wire.Formatter) {
		f.PutUint(actions)
	})
}

// SendAction publishes the current action resolution.
func (o *WlDataOffer) SendAction(action uint32) {
	if o.version < 3 {
		return
	}
	o.c.Event(o.id, proto.DataOfferEvtAction, func(f *wire.Formatter) {
		f.PutUint(action)
	})
}

// SendCancelled tells the receiver the session died under it.
func (o *WlDataOffer) SendCancelled() {
	o.c.Event(o.id, proto.DataOfferEvtCancelled, nil)
}

// destroyFromSource removes the offer after the source ended the session.
func (o *WlDataOffer) destroyFromSource() {
	o.source = nil
	o.c.RemoveObject(o)
}

func (o *WlDataOffer) BreakCycles() {
	if o.source != nil {
		o.source.removeOffer(o)
		o.source = nil
	}
	o.device = nil
}
