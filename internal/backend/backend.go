//go:build linux

// Package backend defines the contract the compositor core consumes from
// its hardware-facing collaborator: input events, output configuration,
// frame presentation. The core treats the backend as an opaque source of
// events and sink of frames; only the dummy backend lives here.
package backend

import "github.com/rillwm/rill/internal/engine"

// Event is one backend occurrence, delivered through the runtime's
// backend-event queue.
type Event any

// NewKeymap hands over a keymap descriptor to forward to clients. The
// receiver takes ownership of the descriptor.
type NewKeymap struct {
	Fd   int
	Size uint32
}

// PointerMotion reports absolute pointer motion.
type PointerMotion struct {
	Time uint32
	X, Y float64
}

// PointerButton reports a button state change.
type PointerButton struct {
	Time   uint32
	Button uint32
	State  uint32
}

// KeyboardKey reports a key state change.
type KeyboardKey struct {
	Time  uint32
	Key   uint32
	State uint32
}

// Damage is a dirty rectangle in buffer coordinates.
type Damage struct {
	X, Y, Width, Height int32
}

// Backend delivers input events and frame timing.
type Backend interface {
	// Start begins event delivery into the queue.
	Start(events *engine.Queue[Event]) error

	// PresentFrame hands a rendered image to the output.
	PresentFrame(output uint32, image []byte, damage []Damage) error

	// Stop ends event delivery and releases backend resources.
	Stop()
}

// Dummy is the no-hardware backend used headless and in tests.
type Dummy struct{}

func (Dummy) Start(events *engine.Queue[Event]) error { return nil }

func (Dummy) PresentFrame(output uint32, image []byte, damage []Damage) error { return nil }

func (Dummy) Stop() {}
