//go:build linux

package ifs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/engine"
	"github.com/rillwm/rill/internal/loop"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// harness assembles the single-goroutine runtime the ifs objects expect:
// loop, engine, slow queue, seat, and client sessions over socketpairs.
type harness struct {
	t    *testing.T
	lp   *loop.Loop
	eng  *engine.Engine
	slow *engine.Queue[*client.Client]
	seat *WlSeatGlobal

	nextObjID uint32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	lp, err := loop.New()
	require.NoError(t, err)
	t.Cleanup(lp.Close)

	eng := engine.New()
	lp.OnTurn(eng.Turn)

	h := &harness{
		t:         t,
		lp:        lp,
		eng:       eng,
		slow:      engine.NewQueue[*client.Client](),
		nextObjID: 2,
	}
	h.slow.SetConsumer(eng.NewTask(engine.Default, func() {
		for {
			c, ok := h.slow.Pop()
			if !ok {
				return
			}
			c.Flush()
		}
	}))

	serials := &Serials{}
	serials.Next() // make serial validation meaningful from the start
	h.seat = NewWlSeatGlobal("seat0", serials)
	t.Cleanup(h.seat.Close)
	return h
}

// objID hands out unique client-range object ids for test objects.
func (h *harness) objID() object.ID {
	h.nextObjID++
	return object.ID(h.nextObjID)
}

// serial returns a fresh valid serial.
func (h *harness) serial() uint32 {
	return h.seat.Serial().Next()
}

// peerConn is the test's view of a client socket: it collects bytes and
// ancillary descriptors and frames typed events using the interface set.
type peerConn struct {
	fd     int
	in     wire.InBuffer
	fds    wire.FdQueue
	ifaces map[uint32]*proto.Interface
}

// event is one parsed server event.
type event struct {
	Object uint32
	Iface  string
	Name   string
	Args   []wire.Arg
}

func (h *harness) newClient(id uint64) (*client.Client, *peerConn) {
	h.t.Helper()
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(h.t, err)
	require.NoError(h.t, unix.SetNonblock(pair[0], true))
	require.NoError(h.t, unix.SetNonblock(pair[1], true))

	c, err := client.New(id, pair[0], client.Config{
		Loop:           h.lp,
		Engine:         h.eng,
		MaxMessageSize: 4096,
		WriteThreshold: 64 << 10,
		WriteLimit:     1 << 20,
		MaxQueuedFds:   32,
		SlowClients:    h.slow,
	})
	require.NoError(h.t, err)

	peer := &peerConn{
		fd: pair[1],
		ifaces: map[uint32]*proto.Interface{
			uint32(object.DisplayID): proto.WlDisplay,
		},
	}
	h.t.Cleanup(func() {
		if !c.Dead() {
			c.Kill()
		}
		unix.Close(pair[1])
		peer.fds.CloseAll()
	})
	return c, peer
}

// expect registers the interface serving an object id so events to it can
// be parsed.
func (p *peerConn) expect(id object.ID, iface *proto.Interface) {
	p.ifaces[uint32(id)] = iface
}

// drain flushes pending event queues and parses everything the peer
// received.
func (h *harness) drain(p *peerConn) []event {
	h.t.Helper()
	h.eng.Turn()

	buf := make([]byte, 4096)
	oob := make([]byte, 256)
	for {
		n, oobn, _, _, err := unix.Recvmsg(p.fd, buf, oob, unix.MSG_DONTWAIT|unix.MSG_CMSG_CLOEXEC)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			require.NoError(h.t, err)
		}
		if oobn > 0 {
			cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
			require.NoError(h.t, err)
			for _, cmsg := range cmsgs {
				fds, err := unix.ParseUnixRights(&cmsg)
				if err != nil {
					continue
				}
				for _, fd := range fds {
					p.fds.Push(fd)
				}
			}
		}
		if n == 0 {
			break
		}
		p.in.Append(buf[:n])
	}

	var events []event
	for {
		hdr, payload, err := p.in.Next()
		if errors.Is(err, wire.ErrShortBuffer) {
			break
		}
		require.NoError(h.t, err)

		iface := p.ifaces[hdr.ObjectID]
		require.NotNil(h.t, iface, "event for object %d with unknown interface", hdr.ObjectID)
		desc := iface.Event(hdr.Opcode)
		require.NotNil(h.t, desc, "unknown event %d on %s", hdr.Opcode, iface.Name)

		args, err := wire.ParseArgs(desc.Args, payload, &p.fds)
		require.NoError(h.t, err)

		// A data_offer event introduces a fresh server-allocated object.
		if iface == proto.WlDataDevice && hdr.Opcode == proto.DataDeviceEvtDataOffer {
			p.ifaces[args[0].U] = proto.WlDataOffer
		}

		events = append(events, event{
			Object: hdr.ObjectID,
			Iface:  iface.Name,
			Name:   desc.Name,
			Args:   args,
		})
	}
	return events
}

// names projects events onto "iface.name" strings for order assertions.
func names(events []event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Iface+"."+e.Name)
	}
	return out
}

// find returns the first event with the given name, or nil.
func find(events []event, iface, name string) *event {
	for i := range events {
		if events[i].Iface == iface && events[i].Name == name {
			return &events[i]
		}
	}
	return nil
}

// filter returns all events with the given name.
func filter(events []event, iface, name string) []event {
	var out []event
	for _, e := range events {
		if e.Iface == iface && e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// msg builds a parsed request message for direct dispatch.
func msg(args ...wire.Arg) *wire.Message {
	return &wire.Message{Args: args}
}

func uintArg(v uint32) wire.Arg     { return wire.Arg{Kind: wire.Uint, U: v} }
func strArg(s string) wire.Arg      { return wire.Arg{Kind: wire.String, S: s} }
func optStrArg(s *string) wire.Arg {
	if s == nil {
		return wire.Arg{Kind: wire.OptString, SNil: true}
	}
	return wire.Arg{Kind: wire.OptString, S: *s}
}
func fdArg(fd int) wire.Arg { return wire.Arg{Kind: wire.Fd, FD: fd} }

// newSource creates and installs a data source for a client.
func (h *harness) newSource(c *client.Client, p *peerConn, version uint32) *WlDataSource {
	h.t.Helper()
	id := h.objID()
	src := NewWlDataSource(c, id, version)
	require.NoError(h.t, c.AddObject(src))
	p.expect(id, proto.WlDataSource)
	return src
}

// newDevice creates and installs a data device bound to the seat.
func (h *harness) newDevice(c *client.Client, p *peerConn, version uint32) *WlDataDevice {
	h.t.Helper()
	id := h.objID()
	dev := &WlDataDevice{id: id, c: c, version: version, seat: h.seat}
	require.NoError(h.t, c.AddObject(dev))
	h.seat.addDevice(dev)
	p.expect(id, proto.WlDataDevice)
	return dev
}

// newSurface creates and installs a surface for a client.
func (h *harness) newSurface(c *client.Client) *WlSurface {
	h.t.Helper()
	id := h.objID()
	s := NewWlSurface(c, id, proto.WlSurface.Version)
	require.NoError(h.t, c.AddObject(s))
	return s
}

// offerOf resolves the receiver-side offer object announced by an enter
// or selection event.
func (h *harness) offerOf(c *client.Client, id uint32) *WlDataOffer {
	h.t.Helper()
	o, ok := c.Get(object.ID(id))
	require.True(h.t, ok, "offer %d not in receiver table", id)
	offer, ok := o.(*WlDataOffer)
	require.True(h.t, ok)
	return offer
}
