//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/globals"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlCompositorGlobal advertises surface creation.
type WlCompositorGlobal struct{}

func (g *WlCompositorGlobal) Interface() *proto.Interface { return proto.WlCompositor }
func (g *WlCompositorGlobal) Version() uint32             { return proto.WlCompositor.Version }

func (g *WlCompositorGlobal) Bind(c *client.Client, id object.ID, version uint32) error {
	return c.AddObject(&WlCompositor{id: id, c: c, version: version})
}

var _ globals.Global = (*WlCompositorGlobal)(nil)

// WlCompositor is the per-client binding.
type WlCompositor struct {
	id      object.ID
	c       *client.Client
	version uint32
}

func (w *WlCompositor) ID() object.ID               { return w.id }
func (w *WlCompositor) Interface() *proto.Interface { return proto.WlCompositor }
func (w *WlCompositor) Version() uint32             { return w.version }

func (w *WlCompositor) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.CompositorCreateSurface:
		id, err := w.c.NewClientID(msg.NewID(0))
		if err != nil {
			return err
		}
		return w.c.AddObject(NewWlSurface(w.c, id, w.version))
	default:
		return object.Errorf(w.id, object.ErrInvalidMethod, "invalid compositor request %d", opcode)
	}
}

func (w *WlCompositor) BreakCycles() {}
