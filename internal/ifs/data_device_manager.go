//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/globals"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlDataDeviceManagerGlobal advertises data transfer support.
type WlDataDeviceManagerGlobal struct{}

func (g *WlDataDeviceManagerGlobal) Interface() *proto.Interface { return proto.WlDataDeviceManager }
func (g *WlDataDeviceManagerGlobal) Version() uint32             { return proto.WlDataDeviceManager.Version }

func (g *WlDataDeviceManagerGlobal) Bind(c *client.Client, id object.ID, version uint32) error {
	return c.AddObject(&WlDataDeviceManager{id: id, c: c, version: version})
}

var _ globals.Global = (*WlDataDeviceManagerGlobal)(nil)

// WlDataDeviceManager is the per-client binding. The version it was bound
// at flows into every source, device, and offer it creates.
type WlDataDeviceManager struct {
	id      object.ID
	c       *client.Client
	version uint32
}

func (m *WlDataDeviceManager) ID() object.ID               { return m.id }
func (m *WlDataDeviceManager) Interface() *proto.Interface { return proto.WlDataDeviceManager }
func (m *WlDataDeviceManager) Version() uint32             { return m.version }

func (m *WlDataDeviceManager) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.DataDeviceManagerCreateDataSource:
		id, err := m.c.NewClientID(msg.NewID(0))
		if err != nil {
			return err
		}
		return m.c.AddObject(NewWlDataSource(m.c, id, m.version))

	case proto.DataDeviceManagerGetDataDevice:
		return m.getDataDevice(msg)

	default:
		return object.Errorf(m.id, object.ErrInvalidMethod, "invalid data_device_manager request %d", opcode)
	}
}

func (m *WlDataDeviceManager) getDataDevice(msg *wire.Message) error {
	id, err := m.c.NewClientID(msg.NewID(0))
	if err != nil {
		return err
	}
	seatID := object.ID(msg.Object(1))
	o, ok := m.c.Get(seatID)
	if !ok {
		return object.Errorf(m.id, object.ErrInvalidObject, "unknown seat object %s", seatID)
	}
	seatObj, ok := o.(*WlSeat)
	if !ok {
		return object.Errorf(m.id, object.ErrInvalidObject, "object %s is not a seat", seatID)
	}

	dev := &WlDataDevice{id: id, c: m.c, version: m.version, seat: seatObj.global}
	if err := m.c.AddObject(dev); err != nil {
		return err
	}
	seatObj.global.addDevice(dev)
	return nil
}

func (m *WlDataDeviceManager) BreakCycles() {}
