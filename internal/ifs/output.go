//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/globals"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// Mode flags for the mode event.
const (
	outputModeCurrent   uint32 = 1
	outputModePreferred uint32 = 2
)

// OutputInfo is the static description delivered on bind. The backend
// fills it in; the core only relays it.
type OutputInfo struct {
	X, Y           int32
	PhysicalWidth  int32
	PhysicalHeight int32
	Make           string
	Model          string
	Width          int32
	Height         int32
	Refresh        int32 // mHz
	Scale          int32
}

// WlOutputGlobal advertises one output.
type WlOutputGlobal struct {
	Info OutputInfo
}

func (g *WlOutputGlobal) Interface() *proto.Interface { return proto.WlOutput }
func (g *WlOutputGlobal) Version() uint32             { return proto.WlOutput.Version }

func (g *WlOutputGlobal) Bind(c *client.Client, id object.ID, version uint32) error {
	o := &WlOutput{id: id, c: c, version: version, global: g}
	if err := c.AddObject(o); err != nil {
		return err
	}
	o.sendState()
	return nil
}

var _ globals.Global = (*WlOutputGlobal)(nil)

// WlOutput is the per-client binding.
type WlOutput struct {
	id      object.ID
	c       *client.Client
	version uint32
	global  *WlOutputGlobal
}

func (o *WlOutput) ID() object.ID               { return o.id }
func (o *WlOutput) Interface() *proto.Interface { return proto.WlOutput }
func (o *WlOutput) Version() uint32             { return o.version }

func (o *WlOutput) sendState() {
	info := o.global.Info
	o.c.Event(o.id, proto.OutputEvtGeometry, func(f *wire.Formatter) {
		f.PutInt(info.X)
		f.PutInt(info.Y)
		f.PutInt(info.PhysicalWidth)
		f.PutInt(info.PhysicalHeight)
		f.PutInt(0) // subpixel unknown
		f.PutString(info.Make)
		f.PutString(info.Model)
		f.PutInt(0) // transform normal
	})
	o.c.Event(o.id, proto.OutputEvtMode, func(f *wire.Formatter) {
		f.PutUint(outputModeCurrent | outputModePreferred)
		f.PutInt(info.Width)
		f.PutInt(info.Height)
		f.PutInt(info.Refresh)
	})
	if o.version >= 2 {
		scale := info.Scale
		if scale == 0 {
			scale = 1
		}
		o.c.Event(o.id, proto.OutputEvtScale, func(f *wire.Formatter) {
			f.PutInt(scale)
		})
		o.c.Event(o.id, proto.OutputEvtDone, nil)
	}
}

func (o *WlOutput) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.OutputRelease:
		o.c.RemoveObject(o)
		return nil
	default:
		return object.Errorf(o.id, object.ErrInvalidMethod, "invalid output request %d", opcode)
	}
}

func (o *WlOutput) BreakCycles() {}
