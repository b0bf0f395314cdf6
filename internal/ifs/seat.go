//go:build linux

package ifs

import (
	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/fixed"
	"github.com/rillwm/rill/internal/globals"
	"github.com/rillwm/rill/internal/logger"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// BtnLeft is the evdev code delivered for the primary button.
const BtnLeft uint32 = 0x110

// Button states on the pointer button event.
const (
	ButtonStateReleased uint32 = 0
	ButtonStatePressed  uint32 = 1
)

// WlSeatGlobal aggregates the input devices sharing focus and owns the
// data-transfer sessions running on them: the current selection and at
// most one drag.
type WlSeatGlobal struct {
	name    string
	serials *Serials
	caps    uint32

	devices   map[uint64][]*WlDataDevice
	pointers  map[uint64][]*WlPointer
	keyboards map[uint64][]*WlKeyboard

	pointerFocus  *WlSurface
	keyboardFocus *WlSurface

	selection *WlDataSource

	dragSource *WlDataSource
	dragOrigin *WlSurface
	dragIcon   *WlSurface
	dragActive bool // grab in progress, cleared on drop or cancel

	keymapFd   int
	keymapSize uint32
}

// NewWlSeatGlobal creates the seat with pointer and keyboard capability.
func NewWlSeatGlobal(name string, serials *Serials) *WlSeatGlobal {
	return &WlSeatGlobal{
		name:      name,
		serials:   serials,
		caps:      proto.SeatCapPointer | proto.SeatCapKeyboard,
		devices:   make(map[uint64][]*WlDataDevice),
		pointers:  make(map[uint64][]*WlPointer),
		keyboards: make(map[uint64][]*WlKeyboard),
		keymapFd:  -1,
	}
}

func (g *WlSeatGlobal) Interface() *proto.Interface { return proto.WlSeat }
func (g *WlSeatGlobal) Version() uint32             { return proto.WlSeat.Version }

func (g *WlSeatGlobal) Bind(c *client.Client, id object.ID, version uint32) error {
	seat := &WlSeat{id: id, c: c, version: version, global: g}
	if err := c.AddObject(seat); err != nil {
		return err
	}
	seat.sendCapabilities(g.caps)
	if version >= 2 {
		seat.sendName(g.name)
	}
	return nil
}

var _ globals.Global = (*WlSeatGlobal)(nil)

// Serial exposes the seat's serial source.
func (g *WlSeatGlobal) Serial() *Serials { return g.serials }

// Selection returns the current clipboard source, nil when empty.
func (g *WlSeatGlobal) Selection() *WlDataSource { return g.selection }

// DragSource returns the active drag's source, nil outside a session.
func (g *WlSeatGlobal) DragSource() *WlDataSource { return g.dragSource }

func (g *WlSeatGlobal) addDevice(d *WlDataDevice) {
	id := d.c.ID()
	g.devices[id] = append(g.devices[id], d)
}

func (g *WlSeatGlobal) removeDevice(d *WlDataDevice) {
	id := d.c.ID()
	devs := g.devices[id]
	for i, other := range devs {
		if other == d {
			g.devices[id] = append(devs[:i], devs[i+1:]...)
			break
		}
	}
	if len(g.devices[id]) == 0 {
		delete(g.devices, id)
	}
}

// devicesOf returns the data devices bound by a surface's client.
func (g *WlSeatGlobal) devicesOf(s *WlSurface) []*WlDataDevice {
	if s == nil {
		return nil
	}
	return g.devices[s.Client().ID()]
}

// detachSource clears any session reference to a source that is going
// away. Called from breakSourceLoops.
func (g *WlSeatGlobal) detachSource(s *WlDataSource) {
	if g.selection == s {
		g.selection = nil
		for _, dev := range g.devicesOf(g.keyboardFocus) {
			dev.SendSelection(0)
		}
	}
	if g.dragSource == s {
		g.dragSource = nil
		g.dragActive = false
		for _, dev := range g.devicesOf(g.pointerFocus) {
			dev.SendLeave()
		}
	}
}

// setSelection replaces the clipboard. The previous source is cancelled;
// the keyboard-focused client learns of the new contents immediately.
func (g *WlSeatGlobal) setSelection(src *WlDataSource, serial uint32) error {
	if !g.serials.Valid(serial) {
		logger.Debug("Ignoring set_selection with stale serial", "serial", serial)
		return nil
	}
	if g.selection == src {
		return nil
	}
	if src != nil {
		if err := src.attachRole(RoleSelection, g); err != nil {
			return err
		}
	}
	if prev := g.selection; prev != nil {
		prev.SendCancelled()
		prev.cancelOffers(true)
		prev.data.seat = nil
	}
	g.selection = src
	g.deliverSelection(g.keyboardFocus)
	return nil
}

// deliverSelection announces the clipboard to a focused surface's client:
// a fresh offer per data device, or selection(nil) when empty.
func (g *WlSeatGlobal) deliverSelection(s *WlSurface) {
	for _, dev := range g.devicesOf(s) {
		if g.selection == nil {
			dev.SendSelection(0)
			continue
		}
		offer := newWlDataOffer(dev, g.selection)
		if offer == nil {
			continue
		}
		dev.SendSelection(offer.id)
	}
}

// startDrag begins a drag session. The source may be nil for same-client
// drags. Stale serials are ignored, a second concurrent drag is refused.
func (g *WlSeatGlobal) startDrag(src *WlDataSource, origin, icon *WlSurface, serial uint32) error {
	if !g.serials.Valid(serial) {
		logger.Debug("Ignoring start_drag with stale serial", "serial", serial)
		return nil
	}
	if g.dragActive {
		logger.Debug("Ignoring start_drag during active drag")
		return nil
	}
	if src != nil {
		if err := src.attachRole(RoleDrag, g); err != nil {
			return err
		}
	}
	g.dragSource = src
	g.dragOrigin = origin
	g.dragIcon = icon
	g.dragActive = true
	logger.Debug("Drag started", "client", origin.Client().ID())
	return nil
}

// endDragSession tears down session state after dnd_finished.
func (g *WlSeatGlobal) endDragSession(src *WlDataSource) {
	if g.dragSource == src {
		g.dragSource = nil
		g.dragOrigin = nil
		g.dragIcon = nil
		g.dragActive = false
	}
	src.cancelOffers(false)
	src.data.seat = nil
}

// KeyboardEnter moves keyboard focus to a surface: enter for its
// keyboards, then the current selection.
func (g *WlSeatGlobal) KeyboardEnter(s *WlSurface) {
	if g.keyboardFocus == s {
		return
	}
	g.KeyboardLeave()
	g.keyboardFocus = s
	if s == nil {
		return
	}
	serial := g.serials.Next()
	for _, kb := range g.keyboards[s.Client().ID()] {
		kb.SendEnter(serial, s)
	}
	g.deliverSelection(s)
}

// KeyboardLeave clears keyboard focus.
func (g *WlSeatGlobal) KeyboardLeave() {
	s := g.keyboardFocus
	if s == nil {
		return
	}
	g.keyboardFocus = nil
	serial := g.serials.Next()
	for _, kb := range g.keyboards[s.Client().ID()] {
		kb.SendLeave(serial, s)
	}
}

// PointerEnter moves pointer focus to a surface. During a drag the
// receiving client gets a fresh offer and enter on its data devices;
// otherwise its pointers get enter.
func (g *WlSeatGlobal) PointerEnter(s *WlSurface, x, y fixed.Fixed) {
	if g.pointerFocus == s {
		return
	}
	g.PointerLeave()
	g.pointerFocus = s
	if s == nil {
		return
	}
	serial := g.serials.Next()

	if g.dragActive {
		for _, dev := range g.devicesOf(s) {
			var offerID object.ID
			if g.dragSource != nil {
				offer := newWlDataOffer(dev, g.dragSource)
				if offer == nil {
					continue
				}
				if g.dragSource.data.actionsSet {
					offer.SendSourceActions(g.dragSource.data.actions)
				}
				offerID = offer.id
			}
			dev.SendEnter(serial, s, x, y, offerID)
		}
		return
	}

	for _, p := range g.pointers[s.Client().ID()] {
		p.SendEnter(serial, s, x, y)
	}
}

// PointerLeave clears pointer focus. A drag that has not dropped yet is
// cancelled toward the old receiver; after a drop the session survives.
func (g *WlSeatGlobal) PointerLeave() {
	s := g.pointerFocus
	if s == nil {
		return
	}
	g.pointerFocus = nil

	if g.dragActive {
		if src := g.dragSource; src != nil {
			if src.data.shared.Dropped() {
				return
			}
			for _, dev := range g.devicesOf(s) {
				dev.SendLeave()
			}
			src.onLeave()
		} else {
			for _, dev := range g.devicesOf(s) {
				dev.SendLeave()
			}
		}
		return
	}

	serial := g.serials.Next()
	for _, p := range g.pointers[s.Client().ID()] {
		p.SendLeave(serial, s)
	}
}

// PointerMotion reports motion in surface-local coordinates to the
// focused client: the drag receiver's data devices during a drag,
// pointers otherwise.
func (g *WlSeatGlobal) PointerMotion(time uint32, x, y fixed.Fixed) {
	s := g.pointerFocus
	if s == nil {
		return
	}
	if g.dragActive {
		for _, dev := range g.devicesOf(s) {
			dev.SendMotion(time, x, y)
		}
		return
	}
	for _, p := range g.pointers[s.Client().ID()] {
		p.SendMotion(time, x, y)
	}
}

// PointerButton routes a button event. Releasing the primary button
// during a drag completes the session: drop when an action is resolved
// and accepted, cancel otherwise.
func (g *WlSeatGlobal) PointerButton(time, button, state uint32) {
	serial := g.serials.Next()

	if g.dragActive && button == BtnLeft && state == ButtonStateReleased {
		g.finishDrag()
		return
	}

	s := g.pointerFocus
	if s == nil {
		return
	}
	for _, p := range g.pointers[s.Client().ID()] {
		p.SendButton(serial, time, button, state)
	}
}

// finishDrag resolves the pointer release that ends the drag grab.
func (g *WlSeatGlobal) finishDrag() {
	src := g.dragSource
	focus := g.pointerFocus
	g.dragActive = false

	if src == nil {
		for _, dev := range g.devicesOf(focus) {
			dev.SendLeave()
		}
		g.dragOrigin = nil
		g.dragIcon = nil
		return
	}

	if focus != nil && src.canDrop() {
		for _, dev := range g.devicesOf(focus) {
			dev.SendDrop()
		}
		src.onDrop()
		// Session stays alive until the receiver finishes.
		return
	}

	// No resolution: conclude as a leave plus cancellation.
	if focus != nil {
		for _, dev := range g.devicesOf(focus) {
			dev.SendLeave()
		}
	}
	src.onLeave()
	src.SendCancelled()
	g.dragSource = nil
	g.dragOrigin = nil
	g.dragIcon = nil
	src.data.seat = nil
}

// SetKeymap stores the keymap descriptor handed over by the backend and
// forwards it to every bound keyboard. The seat owns the descriptor; each
// delivery dups it because transmission consumes the duplicate.
func (g *WlSeatGlobal) SetKeymap(fd int, size uint32) {
	if g.keymapFd >= 0 {
		_ = unix.Close(g.keymapFd)
	}
	g.keymapFd = fd
	g.keymapSize = size
	for _, kbs := range g.keyboards {
		for _, kb := range kbs {
			kb.sendKeymap()
		}
	}
}

// Close releases seat-owned resources at shutdown.
func (g *WlSeatGlobal) Close() {
	if g.keymapFd >= 0 {
		_ = unix.Close(g.keymapFd)
		g.keymapFd = -1
	}
}

// WlSeat is the per-client binding.
type WlSeat struct {
	id      object.ID
	c       *client.Client
	version uint32
	global  *WlSeatGlobal
}

func (w *WlSeat) ID() object.ID               { return w.id }
func (w *WlSeat) Interface() *proto.Interface { return proto.WlSeat }
func (w *WlSeat) Version() uint32             { return w.version }

func (w *WlSeat) sendCapabilities(caps uint32) {
	w.c.Event(w.id, proto.SeatEvtCapabilities, func(f *wire.Formatter) {
		f.PutUint(caps)
	})
}

func (w *WlSeat) sendName(name string) {
	w.c.Event(w.id, proto.SeatEvtName, func(f *wire.Formatter) {
		f.PutString(name)
	})
}

func (w *WlSeat) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.SeatGetPointer:
		id, err := w.c.NewClientID(msg.NewID(0))
		if err != nil {
			return err
		}
		p := &WlPointer{id: id, c: w.c, version: w.version, global: w.global}
		if err := w.c.AddObject(p); err != nil {
			return err
		}
		cid := w.c.ID()
		w.global.pointers[cid] = append(w.global.pointers[cid], p)
		return nil

	case proto.SeatGetKeyboard:
		id, err := w.c.NewClientID(msg.NewID(0))
		if err != nil {
			return err
		}
		kb := &WlKeyboard{id: id, c: w.c, version: w.version, global: w.global}
		if err := w.c.AddObject(kb); err != nil {
			return err
		}
		cid := w.c.ID()
		w.global.keyboards[cid] = append(w.global.keyboards[cid], kb)
		kb.sendKeymap()
		if w.version >= 4 {
			kb.sendRepeatInfo(25, 600)
		}
		return nil

	case proto.SeatGetTouch:
		id, err := w.c.NewClientID(msg.NewID(0))
		if err != nil {
			return err
		}
		return w.c.AddObject(&WlTouch{id: id, c: w.c, version: w.version})

	case proto.SeatRelease:
		w.c.RemoveObject(w)
		return nil

	default:
		return object.Errorf(w.id, object.ErrInvalidMethod, "invalid seat request %d", opcode)
	}
}

func (w *WlSeat) BreakCycles() {}
