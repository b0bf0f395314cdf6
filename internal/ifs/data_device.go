//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/fixed"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlDataDevice is a client's per-seat portal into selections and drags.
// Offers are delivered through it to the focused client.
type WlDataDevice struct {
	id      object.ID
	c       *client.Client
	version uint32
	seat    *WlSeatGlobal
}

func (d *WlDataDevice) ID() object.ID               { return d.id }
func (d *WlDataDevice) Interface() *proto.Interface { return proto.WlDataDevice }
func (d *WlDataDevice) Version() uint32             { return d.version }

func (d *WlDataDevice) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.DataDeviceStartDrag:
		return d.startDrag(msg)

	case proto.DataDeviceSetSelection:
		return d.setSelection(msg)

	case proto.DataDeviceRelease:
		d.seat.removeDevice(d)
		d.c.RemoveObject(d)
		return nil

	default:
		return object.Errorf(d.id, object.ErrInvalidMethod, "invalid data_device request %d", opcode)
	}
}

// resolveSource maps a nullable source id argument to its object.
func (d *WlDataDevice) resolveSource(raw uint32) (*WlDataSource, error) {
	if raw == 0 {
		return nil, nil
	}
	o, ok := d.c.Get(object.ID(raw))
	if !ok {
		return nil, object.Errorf(d.id, object.ErrInvalidObject, "unknown source object %s", object.ID(raw))
	}
	src, ok := o.(*WlDataSource)
	if !ok {
		return nil, object.Errorf(d.id, object.ErrInvalidObject, "object %s is not a data source", object.ID(raw))
	}
	return src, nil
}

// resolveSurface maps a surface id argument to its object.
func (d *WlDataDevice) resolveSurface(raw uint32, optional bool) (*WlSurface, error) {
	if raw == 0 {
		if optional {
			return nil, nil
		}
		return nil, object.Errorf(d.id, object.ErrInvalidObject, "surface argument is required")
	}
	o, ok := d.c.Get(object.ID(raw))
	if !ok {
		return nil, object.Errorf(d.id, object.ErrInvalidObject, "unknown surface object %s", object.ID(raw))
	}
	s, ok := o.(*WlSurface)
	if !ok {
		return nil, object.Errorf(d.id, object.ErrInvalidObject, "object %s is not a surface", object.ID(raw))
	}
	return s, nil
}

func (d *WlDataDevice) startDrag(msg *wire.Message) error {
	src, err := d.resolveSource(msg.Object(0))
	if err != nil {
		return err
	}
	origin, err := d.resolveSurface(msg.Object(1), false)
	if err != nil {
		return err
	}
	icon, err := d.resolveSurface(msg.Object(2), true)
	if err != nil {
		return err
	}
	return d.seat.startDrag(src, origin, icon, msg.Uint(3))
}

func (d *WlDataDevice) setSelection(msg *wire.Message) error {
	src, err := d.resolveSource(msg.Object(0))
	if err != nil {
		return err
	}
	return d.seat.setSelection(src, msg.Uint(1))
}

// SendDataOffer introduces a freshly allocated offer to the receiver.
func (d *WlDataDevice) SendDataOffer(o *WlDataOffer) {
	d.c.Event(d.id, proto.DataDeviceEvtDataOffer, func(f *wire.Formatter) {
		f.PutUint(uint32(o.id))
	})
}

// SendEnter announces drag focus with the offer carrying the payload
// types; offerID is 0 for a same-client drag without source.
func (d *WlDataDevice) SendEnter(serial uint32, surface *WlSurface, x, y fixed.Fixed, offerID object.ID) {
	d.c.Event(d.id, proto.DataDeviceEvtEnter, func(f *wire.Formatter) {
		f.PutUint(serial)
		f.PutObject(uint32(surface.id))
		f.PutFixed(x)
		f.PutFixed(y)
		f.PutObject(uint32(offerID))
	})
}

// SendLeave revokes drag focus.
func (d *WlDataDevice) SendLeave() {
	d.c.Event(d.id, proto.DataDeviceEvtLeave, nil)
}

// SendMotion reports drag motion in surface-local coordinates.
func (d *WlDataDevice) SendMotion(time uint32, x, y fixed.Fixed) {
	d.c.Event(d.id, proto.DataDeviceEvtMotion, func(f *wire.Formatter) {
		f.PutUint(time)
		f.PutFixed(x)
		f.PutFixed(y)
	})
}

// SendDrop reports the pointer release over the receiver.
func (d *WlDataDevice) SendDrop() {
	d.c.Event(d.id, proto.DataDeviceEvtDrop, nil)
}

// SendSelection announces the clipboard offer, 0 for an empty clipboard.
func (d *WlDataDevice) SendSelection(offerID object.ID) {
	d.c.Event(d.id, proto.DataDeviceEvtSelection, func(f *wire.Formatter) {
		f.PutObject(uint32(offerID))
	})
}

func (d *WlDataDevice) BreakCycles() {
	if d.seat != nil {
		d.seat.removeDevice(d)
		d.seat = nil
	}
}
