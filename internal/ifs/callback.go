//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlCallback is a one-shot completion token. It has no requests; the
// server fires done and retires it.
type WlCallback struct {
	id object.ID
	c  *client.Client
}

func (cb *WlCallback) ID() object.ID               { return cb.id }
func (cb *WlCallback) Interface() *proto.Interface { return proto.WlCallback }
func (cb *WlCallback) Version() uint32             { return 1 }

func (cb *WlCallback) Dispatch(opcode uint16, msg *wire.Message) error {
	return object.Errorf(cb.id, object.ErrInvalidMethod, "callback has no requests")
}

// SendDone fires the completion event.
func (cb *WlCallback) SendDone(data uint32) {
	cb.c.Event(cb.id, proto.CallbackEvtDone, func(f *wire.Formatter) {
		f.PutUint(data)
	})
}

func (cb *WlCallback) BreakCycles() {}
