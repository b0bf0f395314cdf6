//go:build linux

package ifs

import (
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/clientmem"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// WlBuffer views a rectangle of pool memory. It holds one reference on
// the mapping and tracks the surfaces displaying it so destruction can
// detach them.
type WlBuffer struct {
	id     object.ID
	c      *client.Client
	mem    *clientmem.Mem
	offset int
	width  int
	height int
	stride int
	format uint32

	surfaces map[*WlSurface]struct{}
	released bool
	dead     bool
}

// NewWlBuffer validates the requested view against the pool bounds.
func NewWlBuffer(c *client.Client, id object.ID, mem *clientmem.Mem, offset, width, height, stride int, format uint32) (*WlBuffer, error) {
	bpp, ok := formatBpp[format]
	if !ok {
		return nil, object.Errorf(id, shmErrInvalidFormat, "unsupported format %d", format)
	}
	if width <= 0 || height <= 0 || offset < 0 || stride <= 0 {
		return nil, object.Errorf(id, shmErrInvalidStride, "invalid buffer geometry %dx%d stride %d offset %d", width, height, stride, offset)
	}
	if stride < width*bpp {
		return nil, object.Errorf(id, shmErrInvalidStride, "stride %d too small for width %d", stride, width)
	}
	required := int64(stride)*int64(height) + int64(offset)
	if required > int64(mem.Len()) {
		return nil, object.Errorf(id, shmErrInvalidStride, "buffer of %d bytes exceeds pool of %d", required, mem.Len())
	}

	mem.Ref()
	return &WlBuffer{
		id:       id,
		c:        c,
		mem:      mem,
		offset:   offset,
		width:    width,
		height:   height,
		stride:   stride,
		format:   format,
		surfaces: make(map[*WlSurface]struct{}),
	}, nil
}

func (b *WlBuffer) ID() object.ID               { return b.id }
func (b *WlBuffer) Interface() *proto.Interface { return proto.WlBuffer }
func (b *WlBuffer) Version() uint32             { return 1 }

// Bytes returns the pixel data view.
func (b *WlBuffer) Bytes() []byte {
	return b.mem.Bytes(b.offset)[:b.stride*b.height]
}

func (b *WlBuffer) attachSurface(s *WlSurface) {
	b.surfaces[s] = struct{}{}
	b.released = false
}

func (b *WlBuffer) detachSurface(s *WlSurface) {
	delete(b.surfaces, s)
}

// SendRelease tells the client the compositor no longer reads the buffer.
func (b *WlBuffer) SendRelease() {
	if b.released || b.dead {
		return
	}
	b.released = true
	b.c.Event(b.id, proto.BufferEvtRelease, nil)
}

func (b *WlBuffer) Dispatch(opcode uint16, msg *wire.Message) error {
	switch opcode {
	case proto.BufferDestroy:
		b.BreakCycles()
		b.c.RemoveObject(b)
		return nil
	default:
		return object.Errorf(b.id, object.ErrInvalidMethod, "invalid buffer request %d", opcode)
	}
}

func (b *WlBuffer) BreakCycles() {
	if b.dead {
		return
	}
	b.dead = true
	for s := range b.surfaces {
		if s.current == b {
			s.current = nil
		}
		if s.pending == b {
			s.pending = nil
		}
	}
	b.surfaces = make(map[*WlSurface]struct{})
	b.mem.Unref()
}
