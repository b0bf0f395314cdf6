//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/globals"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlRegistry is the per-client view of the global registry. On creation
// it announces every live global; afterward it relays add/remove
// broadcasts until the client goes away.
type WlRegistry struct {
	id      object.ID
	c       *client.Client
	globals *globals.Globals
}

// NewWlRegistry installs a registry object and announces the live globals.
func NewWlRegistry(c *client.Client, id object.ID, gs *globals.Globals) (*WlRegistry, error) {
	r := &WlRegistry{id: id, c: c, globals: gs}
	if err := c.AddObject(r); err != nil {
		return nil, err
	}
	gs.AddAnnouncer(r)
	gs.Each(func(name uint32, g globals.Global) {
		r.AnnounceGlobal(name, g)
	})
	return r, nil
}

func (r *WlRegistry) ID() object.ID               { return r.id }
func (r *WlRegistry) Interface() *proto.Interface { return proto.WlRegistry }
func (r *WlRegistry) Version() uint32             { return 1 }

func (r *WlRegistry) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.RegistryBind:
		return r.globals.Bind(r.c, r.id, msg.Uint(0), msg.Str(1), msg.Uint(2), msg.NewID(3))
	default:
		return object.Errorf(r.id, object.ErrInvalidMethod, "invalid registry request %d", opcode)
	}
}

// AnnounceGlobal implements globals.Announcer.
func (r *WlRegistry) AnnounceGlobal(name uint32, g globals.Global) {
	r.c.Event(r.id, proto.RegistryEvtGlobal, func(f *wire.Formatter) {
		f.PutUint(name)
		f.PutString(g.Interface().Name)
		f.PutUint(g.Version())
	})
}

// AnnounceRemoval implements globals.Announcer.
func (r *WlRegistry) AnnounceRemoval(name uint32) {
	r.c.Event(r.id, proto.RegistryEvtGlobalRemove, func(f *wire.Formatter) {
		f.PutUint(name)
	})
}

func (r *WlRegistry) BreakCycles() {
	r.globals.RemoveAnnouncer(r)
}
