//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/globals"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// Subcompositor error codes.
const (
	subcompositorErrBadSurface uint32 = 0
)

// WlSubcompositorGlobal is advertised for discovery; subsurface trees are
// layout policy and stay out of the core, so get_subsurface is refused.
type WlSubcompositorGlobal struct{}

func (g *WlSubcompositorGlobal) Interface() *proto.Interface { return proto.WlSubcompositor }
func (g *WlSubcompositorGlobal) Version() uint32             { return proto.WlSubcompositor.Version }

func (g *WlSubcompositorGlobal) Bind(c *client.Client, id object.ID, version uint32) error {
	return c.AddObject(&WlSubcompositor{id: id, c: c, version: version})
}

var _ globals.Global = (*WlSubcompositorGlobal)(nil)

// WlSubcompositor is the per-client binding.
type WlSubcompositor struct {
	id      object.ID
	c       *client.Client
	version uint32
}

func (w *WlSubcompositor) ID() object.ID               { return w.id }
func (w *WlSubcompositor) Interface() *proto.Interface { return proto.WlSubcompositor }
func (w *WlSubcompositor) Version() uint32             { return w.version }

func (w *WlSubcompositor) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.SubcompositorDestroy:
		w.c.RemoveObject(w)
		return nil
	case proto.SubcompositorGetSubsurface:
		return object.Errorf(w.id, subcompositorErrBadSurface, "subsurfaces are not supported")
	default:
		return object.Errorf(w.id, object.ErrInvalidMethod, "invalid subcompositor request %d", opcode)
	}
}

func (w *WlSubcompositor) BreakCycles() {}
