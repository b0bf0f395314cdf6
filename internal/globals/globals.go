//go:build linux

// Package globals implements the registry of process-wide advertisable
// resources. Globals carry monotonically increasing names; every bound
// wl_registry object is announced each live global on creation and every
// add/remove afterward. Binding manufactures a per-client object of the
// declared interface at the client-supplied id.
package globals

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/logger"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
)

// Global is one advertisable resource.
type Global interface {
	// Interface returns the descriptor advertised for this global.
	Interface() *proto.Interface

	// Version is the highest version clients may bind.
	Version() uint32

	// Bind installs a per-client object at id, bound at version.
	Bind(c *client.Client, id object.ID, version uint32) error
}

// Announcer receives add/remove broadcasts. Every live wl_registry object
// is an announcer.
type Announcer interface {
	AnnounceGlobal(name uint32, g Global)
	AnnounceRemoval(name uint32)
}

type entry struct {
	name uint32
	g    Global
}

// Globals is the process-wide registry.
type Globals struct {
	nextName   uint32
	live       map[uint32]*entry
	order      []uint32 // announcement order
	removed    map[uint32]bool
	announcers map[Announcer]struct{}
}

// New creates an empty registry.
func New() *Globals {
	return &Globals{
		live:       make(map[uint32]*entry),
		removed:    make(map[uint32]bool),
		announcers: make(map[Announcer]struct{}),
	}
}

// Add registers a global, assigns its name, and broadcasts it.
func (gs *Globals) Add(g Global) uint32 {
	gs.nextName++
	name := gs.nextName
	gs.live[name] = &entry{name: name, g: g}
	gs.order = append(gs.order, name)
	logger.Debug("Global added", "name", name, "interface", g.Interface().Name, "version", g.Version())
	for a := range gs.announcers {
		a.AnnounceGlobal(name, g)
	}
	return name
}

// Remove withdraws a global and broadcasts global_remove. Binds that
// arrive after removal are a protocol error on the registry.
func (gs *Globals) Remove(name uint32) {
	if _, ok := gs.live[name]; !ok {
		return
	}
	delete(gs.live, name)
	gs.removed[name] = true
	for i, n := range gs.order {
		if n == name {
			gs.order = append(gs.order[:i], gs.order[i+1:]...)
			break
		}
	}
	logger.Debug("Global removed", "name", name)
	for a := range gs.announcers {
		a.AnnounceRemoval(name)
	}
}

// Each visits live globals in announcement order.
func (gs *Globals) Each(f func(name uint32, g Global)) {
	for _, name := range gs.order {
		if e, ok := gs.live[name]; ok {
			f(e.name, e.g)
		}
	}
}

// AddAnnouncer subscribes a registry object to broadcasts.
func (gs *Globals) AddAnnouncer(a Announcer) {
	gs.announcers[a] = struct{}{}
}

// RemoveAnnouncer unsubscribes a registry object.
func (gs *Globals) RemoveAnnouncer(a Announcer) {
	delete(gs.announcers, a)
}

// Bind resolves a bind request from regID. The interface name must match
// the advertised global and the requested version must not exceed the
// advertised one.
func (gs *Globals) Bind(c *client.Client, regID object.ID, name uint32, ifaceName string, version uint32, rawID uint32) error {
	e, ok := gs.live[name]
	if !ok {
		if gs.removed[name] {
			return object.Errorf(regID, object.ErrInvalidObject,
				"bind to removed global %d", name)
		}
		return object.Errorf(regID, object.ErrInvalidObject,
			"bind to unknown global %d", name)
	}
	if e.g.Interface().Name != ifaceName {
		return object.Errorf(regID, object.ErrInvalidObject,
			"global %d is %s, not %s", name, e.g.Interface().Name, ifaceName)
	}
	if version == 0 || version > e.g.Version() {
		return object.Errorf(regID, object.ErrInvalidObject,
			"global %d supports versions 1..%d, requested %d", name, e.g.Version(), version)
	}

	id, err := c.NewClientID(rawID)
	if err != nil {
		return err
	}
	return e.g.Bind(c, id, version)
}
