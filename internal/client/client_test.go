//go:build linux

package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/engine"
	"github.com/rillwm/rill/internal/loop"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// testIface has one v1 request taking a uint, one v1 request taking an
// fd, and one request introduced in v2.
var testIface = &proto.Interface{
	Name:    "test_iface",
	Version: 2,
	Requests: []proto.MessageDesc{
		{Name: "poke", Since: 1, Args: []wire.ArgKind{wire.Uint}},
		{Name: "pass_fd", Since: 1, Args: []wire.ArgKind{wire.Fd}},
		{Name: "newer", Since: 2},
	},
}

// testObject records dispatches.
type testObject struct {
	id       object.ID
	version  uint32
	pokes    []uint32
	fds      []int
	breaks   int
	dispatch func(opcode uint16, msg *wire.Message) error
}

func (o *testObject) ID() object.ID               { return o.id }
func (o *testObject) Interface() *proto.Interface { return testIface }
func (o *testObject) Version() uint32             { return o.version }
func (o *testObject) BreakCycles()                { o.breaks++ }

func (o *testObject) Dispatch(opcode uint16, msg *wire.Message) error {
	if o.dispatch != nil {
		return o.dispatch(opcode, msg)
	}
	switch opcode {
	case 0:
		o.pokes = append(o.pokes, msg.Uint(0))
	case 1:
		o.fds = append(o.fds, msg.FD(0))
	}
	return nil
}

type testRuntime struct {
	lp   *loop.Loop
	eng  *engine.Engine
	slow *engine.Queue[*Client]
}

func newTestRuntime(t *testing.T) *testRuntime {
	t.Helper()
	lp, err := loop.New()
	require.NoError(t, err)
	t.Cleanup(lp.Close)

	eng := engine.New()
	lp.OnTurn(eng.Turn)

	rt := &testRuntime{lp: lp, eng: eng, slow: engine.NewQueue[*Client]()}
	rt.slow.SetConsumer(eng.NewTask(engine.Default, func() {
		for {
			c, ok := rt.slow.Pop()
			if !ok {
				return
			}
			c.Flush()
		}
	}))
	return rt
}

// newClient builds a session over a socketpair and returns the peer fd.
func (rt *testRuntime) newClient(t *testing.T, cfg Config) (*Client, int) {
	t.Helper()
	var fds [2]int
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	fds = pair
	require.NoError(t, unix.SetNonblock(fds[0], true))

	cfg.Loop = rt.lp
	cfg.Engine = rt.eng
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.WriteThreshold == 0 {
		cfg.WriteThreshold = 16 << 10
	}
	if cfg.WriteLimit == 0 {
		cfg.WriteLimit = 64 << 10
	}
	if cfg.MaxQueuedFds == 0 {
		cfg.MaxQueuedFds = 8
	}
	if cfg.SlowClients == nil {
		cfg.SlowClients = rt.slow
	}

	c, err := New(1, fds[0], cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if !c.Dead() {
			c.Kill()
		}
		unix.Close(fds[1])
	})
	return c, fds[1]
}

// writeRequest frames a request and writes it to the peer end.
func writeRequest(t *testing.T, peer int, id uint32, opcode uint16, build func(*wire.Formatter)) {
	t.Helper()
	var out wire.OutBuffer
	f := wire.NewFormatter(&out, id, opcode)
	if build != nil {
		build(f)
	}
	require.NoError(t, f.End())
	_, err := unix.Write(peer, out.Bytes())
	require.NoError(t, err)
}

// readEvent frames one event from the peer end.
func readEvent(t *testing.T, peer int, in *wire.InBuffer) wire.Header {
	t.Helper()
	for {
		h, _, err := in.Next()
		if err == nil {
			return h
		}
		buf := make([]byte, 4096)
		n, rerr := unix.Read(peer, buf)
		require.NoError(t, rerr)
		require.Greater(t, n, 0, "peer closed before a complete event arrived")
		in.Append(buf[:n])
	}
}

func TestDispatchHappyPath(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{})

	obj := &testObject{id: 5, version: 1}
	require.NoError(t, c.AddObject(obj))

	writeRequest(t, peer, 5, 0, func(f *wire.Formatter) {
		f.PutUint(99)
	})
	require.NoError(t, c.onSocket(loop.Readable))

	assert.Equal(t, []uint32{99}, obj.pokes)
	assert.False(t, c.Dead())
}

func TestUnknownObjectIsProtocolError(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{})

	writeRequest(t, peer, 77, 0, func(f *wire.Formatter) {
		f.PutUint(1)
	})
	require.NoError(t, c.onSocket(loop.Readable))
	assert.True(t, c.Dead())

	var in wire.InBuffer
	h := readEvent(t, peer, &in)
	assert.Equal(t, uint32(object.DisplayID), h.ObjectID)
	assert.Equal(t, proto.DisplayEvtError, h.Opcode)

	// After the error event the socket is closed.
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(peer, buf)
		require.NoError(t, err)
		if n == 0 {
			break
		}
	}
}

func TestInvalidOpcodeIsProtocolError(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{})

	obj := &testObject{id: 5, version: 1}
	require.NoError(t, c.AddObject(obj))

	writeRequest(t, peer, 5, 9, nil)
	require.NoError(t, c.onSocket(loop.Readable))
	assert.True(t, c.Dead())
}

func TestVersionGatedOpcode(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{})

	// Bound at version 1: the v2 request is invisible.
	obj := &testObject{id: 5, version: 1}
	require.NoError(t, c.AddObject(obj))

	writeRequest(t, peer, 5, 2, nil)
	require.NoError(t, c.onSocket(loop.Readable))
	assert.True(t, c.Dead())
}

func TestVersionVisibleOpcode(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{})

	obj := &testObject{id: 5, version: 2}
	require.NoError(t, c.AddObject(obj))

	writeRequest(t, peer, 5, 2, nil)
	require.NoError(t, c.onSocket(loop.Readable))
	assert.False(t, c.Dead())
}

func TestFdArgumentConsumesAncillary(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{})

	obj := &testObject{id: 5, version: 1}
	require.NoError(t, c.AddObject(obj))

	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	var out wire.OutBuffer
	f := wire.NewFormatter(&out, 5, 1)
	require.NoError(t, f.End())

	rights := unix.UnixRights(p[0])
	require.NoError(t, unix.Sendmsg(peer, out.Bytes(), rights, nil, 0))
	require.NoError(t, c.onSocket(loop.Readable))

	require.Len(t, obj.fds, 1)

	var want, got unix.Stat_t
	require.NoError(t, unix.Fstat(p[0], &want))
	require.NoError(t, unix.Fstat(obj.fds[0], &got))
	assert.Equal(t, want.Ino, got.Ino)
	unix.Close(obj.fds[0])
}

func TestMissingFdIsProtocolError(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{})

	obj := &testObject{id: 5, version: 1}
	require.NoError(t, c.AddObject(obj))

	// The request declares an fd argument but none was queued.
	writeRequest(t, peer, 5, 1, nil)
	require.NoError(t, c.onSocket(loop.Readable))
	assert.True(t, c.Dead())
}

func TestServerIDsStrictlyIncrease(t *testing.T) {
	rt := newTestRuntime(t)
	c, _ := rt.newClient(t, Config{})

	prev := object.ID(0)
	for i := 0; i < 100; i++ {
		id := c.AllocServerID()
		assert.True(t, id.ServerAllocated())
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestDeleteIDOnlyForClientRange(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{})

	clientObj := &testObject{id: 5, version: 1}
	require.NoError(t, c.AddObject(clientObj))
	serverObj := &testObject{id: c.AllocServerID(), version: 1}
	require.NoError(t, c.AddObject(serverObj))

	c.RemoveObject(serverObj)
	c.RemoveObject(clientObj)
	rt.eng.Turn()

	var in wire.InBuffer
	h := readEvent(t, peer, &in)
	assert.Equal(t, uint32(object.DisplayID), h.ObjectID)
	assert.Equal(t, proto.DisplayEvtDeleteID, h.Opcode)

	// Exactly one delete_id: the server-range removal is never announced.
	buf := make([]byte, 64)
	require.NoError(t, unix.SetNonblock(peer, true))
	_, err := unix.Read(peer, buf)
	assert.ErrorIs(t, err, unix.EAGAIN)
}

func TestNewClientIDValidation(t *testing.T) {
	rt := newTestRuntime(t)
	c, _ := rt.newClient(t, Config{})

	obj := &testObject{id: 5, version: 1}
	require.NoError(t, c.AddObject(obj))

	_, err := c.NewClientID(5)
	assert.Error(t, err, "live id must be refused")

	_, err = c.NewClientID(uint32(object.ServerIDMin))
	assert.Error(t, err, "server-range id must be refused")

	id, err := c.NewClientID(6)
	require.NoError(t, err)
	assert.Equal(t, object.ID(6), id)
}

func TestBackpressureMarksSlow(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{WriteThreshold: 256, WriteLimit: 1 << 20})
	_ = peer // peer does not read

	payload := make([]byte, 128)
	for i := 0; i < 8 && !c.Slow(); i++ {
		c.Event(1, 0, func(f *wire.Formatter) {
			f.PutArray(payload)
		})
	}
	assert.True(t, c.Slow())
	assert.Equal(t, 1, rt.slow.Len())
}

func TestWriteLimitKillsClient(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{WriteThreshold: 256, WriteLimit: 1024})
	_ = peer // peer does not read

	payload := make([]byte, 512)
	for i := 0; i < 16 && !c.Dead(); i++ {
		c.Event(1, 0, func(f *wire.Formatter) {
			f.PutArray(payload)
		})
	}
	assert.True(t, c.Dead())
}

func TestKillBreaksCyclesOnce(t *testing.T) {
	rt := newTestRuntime(t)
	c, _ := rt.newClient(t, Config{})

	obj := &testObject{id: 5, version: 1}
	require.NoError(t, c.AddObject(obj))

	removed := 0
	c.cfg.OnRemove = func(*Client) { removed++ }

	c.Kill()
	c.Kill()
	assert.Equal(t, 1, obj.breaks)
	assert.Equal(t, 1, removed)
	assert.True(t, c.Dead())
}

func TestEventAfterDeathIsNoOp(t *testing.T) {
	rt := newTestRuntime(t)
	c, _ := rt.newClient(t, Config{})

	c.Kill()
	c.Event(1, 0, func(f *wire.Formatter) {
		f.PutUint(1)
	})
	// No panic, no buffered bytes.
	assert.True(t, c.out.Empty())
}

func TestHandlerProtocolErrorDisconnects(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{})

	obj := &testObject{id: 5, version: 1}
	obj.dispatch = func(opcode uint16, msg *wire.Message) error {
		return object.Errorf(5, 42, "scripted violation")
	}
	require.NoError(t, c.AddObject(obj))

	writeRequest(t, peer, 5, 0, func(f *wire.Formatter) {
		f.PutUint(1)
	})
	require.NoError(t, c.onSocket(loop.Readable))
	assert.True(t, c.Dead())

	// The error event reaches the peer before the disconnect.
	var in wire.InBuffer
	h := readEvent(t, peer, &in)
	assert.Equal(t, proto.DisplayEvtError, h.Opcode)
}

func TestPeerCloseTearsDown(t *testing.T) {
	rt := newTestRuntime(t)
	c, peer := rt.newClient(t, Config{})

	require.NoError(t, unix.Close(peer))
	require.NoError(t, c.onSocket(loop.Readable|loop.Hup))
	assert.True(t, c.Dead())
}
