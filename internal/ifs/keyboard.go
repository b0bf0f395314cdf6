//go:build linux

package ifs

import (
	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/logger"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlKeyboard delivers key focus and the keymap descriptor to one client.
// Keymap parsing happens entirely in the client; the compositor only
// forwards the descriptor it got from the keymap provider.
type WlKeyboard struct {
	id      object.ID
	c       *client.Client
	version uint32
	global  *WlSeatGlobal
}

func (k *WlKeyboard) ID() object.ID               { return k.id }
func (k *WlKeyboard) Interface() *proto.Interface { return proto.WlKeyboard }
func (k *WlKeyboard) Version() uint32             { return k.version }

func (k *WlKeyboard) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.KeyboardRelease:
		k.untrack()
		k.c.RemoveObject(k)
		return nil
	default:
		return object.Errorf(k.id, object.ErrInvalidMethod, "invalid keyboard request %d", opcode)
	}
}

// sendKeymap forwards the seat's keymap. Each delivery dups the seat's
// descriptor because transmission consumes it.
func (k *WlKeyboard) sendKeymap() {
	if k.global == nil || k.global.keymapFd < 0 {
		return
	}
	fd, err := unix.Dup(k.global.keymapFd)
	if err != nil {
		logger.Warn("Cannot dup keymap fd", "client", k.c.ID(), "error", err)
		return
	}
	size := k.global.keymapSize
	k.c.Event(k.id, proto.KeyboardEvtKeymap, func(f *wire.Formatter) {
		f.PutUint(proto.KeymapFormatXkbV1)
		f.PutFd(fd)
		f.PutUint(size)
	})
}

func (k *WlKeyboard) sendRepeatInfo(rate, delay int32) {
	k.c.Event(k.id, proto.KeyboardEvtRepeatInfo, func(f *wire.Formatter) {
		f.PutInt(rate)
		f.PutInt(delay)
	})
}

func (k *WlKeyboard) SendEnter(serial uint32, s *WlSurface) {
	k.c.Event(k.id, proto.KeyboardEvtEnter, func(f *wire.Formatter) {
		f.PutUint(serial)
		f.PutObject(uint32(s.id))
		f.PutArray(nil)
	})
}

func (k *WlKeyboard) SendLeave(serial uint32, s *WlSurface) {
	k.c.Event(k.id, proto.KeyboardEvtLeave, func(f *wire.Formatter) {
		f.PutUint(serial)
		f.PutObject(uint32(s.id))
	})
}

func (k *WlKeyboard) SendKey(serial, time, key, state uint32) {
	k.c.Event(k.id, proto.KeyboardEvtKey, func(f *wire.Formatter) {
		f.PutUint(serial)
		f.PutUint(time)
		f.PutUint(key)
		f.PutUint(state)
	})
}

func (k *WlKeyboard) untrack() {
	if k.global == nil {
		return
	}
	cid := k.c.ID()
	kbs := k.global.keyboards[cid]
	for i, other := range kbs {
		if other == k {
			k.global.keyboards[cid] = append(kbs[:i], kbs[i+1:]...)
			break
		}
	}
	if len(k.global.keyboards[cid]) == 0 {
		delete(k.global.keyboards, cid)
	}
	k.global = nil
}

func (k *WlKeyboard) BreakCycles() {
	k.untrack()
}
