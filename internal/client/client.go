//go:build linux

// Package client implements the per-connection session: the object table,
// request dispatch, the event queue, and backpressure handling. A client
// owns one socket, one read buffer, one write buffer, and FIFO queues for
// file descriptors in both directions.
//
// Error policy: a protocol error terminates the offending client only.
// The violation is recorded as (object, code, message), formatted as a
// display.error event, flushed best-effort, and the session is torn down.
// No other client is affected.
package client

import (
	"fmt"

	"github.com/rillwm/rill/internal/engine"
	"github.com/rillwm/rill/internal/logger"
	"github.com/rillwm/rill/internal/loop"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
	"github.com/rillwm/rill/pkg/metrics"
)

// Config carries the shared collaborators a session needs. All fields are
// required except Metrics and OnRemove.
type Config struct {
	Loop    *loop.Loop
	Engine  *engine.Engine
	Metrics metrics.CompositorMetrics

	// MaxMessageSize bounds a single framed message.
	MaxMessageSize int

	// WriteThreshold is the write-buffer size beyond which the client is
	// marked slow and queued for opportunistic draining.
	WriteThreshold int

	// WriteLimit is the hard write-buffer cap; beyond it the client is
	// disconnected so no peer can grow our memory without bound.
	WriteLimit int

	// MaxQueuedFds bounds the ancillary in-queue.
	MaxQueuedFds int

	// SlowClients is the shared queue drained by the runtime's
	// slow-client task.
	SlowClients *engine.Queue[*Client]

	// OnRemove is invoked exactly once when the session is torn down.
	OnRemove func(*Client)
}

// Client is one connected peer.
type Client struct {
	id  uint64
	fd  int
	cfg Config

	objects      map[object.ID]object.Object
	nextServerID object.ID

	in    wire.InBuffer
	inFds wire.FdQueue
	out   wire.OutBuffer

	flushTask *engine.Task

	writable bool // EPOLLOUT interest currently enabled
	slow     bool
	dead     bool
}

// New wraps an accepted, non-blocking socket in a session and registers it
// on the loop.
func New(id uint64, fd int, cfg Config) (*Client, error) {
	c := &Client{
		id:           id,
		fd:           fd,
		cfg:          cfg,
		objects:      make(map[object.ID]object.Object),
		nextServerID: object.ServerIDMin,
	}
	c.flushTask = cfg.Engine.NewTask(engine.Default, c.flushNow)

	if err := cfg.Loop.Register(fd, loop.Readable, c.onSocket); err != nil {
		return nil, fmt.Errorf("register client socket: %w", err)
	}

	if cfg.Metrics != nil {
		cfg.Metrics.RecordClientConnected()
	}
	logger.Debug("Client connected", "client", id)
	return c, nil
}

// ID returns the session id (not a protocol object id).
func (c *Client) ID() uint64 {
	return c.id
}

// Dead reports whether the session has been torn down.
func (c *Client) Dead() bool {
	return c.dead
}

// Get looks up an object by id.
func (c *Client) Get(id object.ID) (object.Object, bool) {
	o, ok := c.objects[id]
	return o, ok
}

// NewClientID validates a client-allocated id from a new_id argument:
// it must lie in the client range and must not name a live object.
func (c *Client) NewClientID(raw uint32) (object.ID, error) {
	id := object.ID(raw)
	if id < object.ClientIDMin || id > object.ClientIDMax {
		return 0, object.Errorf(object.DisplayID, object.ErrInvalidObject,
			"new id %s outside client range", id)
	}
	if _, ok := c.objects[id]; ok {
		return 0, object.Errorf(object.DisplayID, object.ErrInvalidObject,
			"new id %s already in use", id)
	}
	return id, nil
}

// AllocServerID returns the next id in the server range. Ids are strictly
// increasing and never reused within one client.
func (c *Client) AllocServerID() object.ID {
	id := c.nextServerID
	c.nextServerID++
	return id
}

// AddObject installs an object at its id.
func (c *Client) AddObject(o object.Object) error {
	id := o.ID()
	if _, ok := c.objects[id]; ok {
		return object.Errorf(object.DisplayID, object.ErrInvalidObject,
			"object id %s already in use", id)
	}
	c.objects[id] = o
	return nil
}

// RemoveObject drops an object from the table. For client-allocated ids a
// delete_id event tells the client the id may be reused by its own
// bookkeeping; server-range ids are never re-announced.
func (c *Client) RemoveObject(o object.Object) {
	id := o.ID()
	if _, ok := c.objects[id]; !ok {
		return
	}
	delete(c.objects, id)
	if !c.dead && !id.ServerAllocated() {
		c.event(object.DisplayID, proto.DisplayEvtDeleteID, func(f *wire.Formatter) {
			f.PutUint(uint32(id))
		})
	}
}

// Event serializes one event to the client's write buffer and schedules a
// flush. build appends the arguments. Descriptors handed to the formatter
// are owned by the buffer afterward.
func (c *Client) Event(id object.ID, opcode uint16, build func(*wire.Formatter)) {
	c.event(id, opcode, build)
}

func (c *Client) event(id object.ID, opcode uint16, build func(*wire.Formatter)) {
	if c.dead {
		return
	}
	f := wire.NewFormatter(&c.out, uint32(id), opcode)
	if build != nil {
		build(f)
	}
	if err := f.End(); err != nil {
		logger.Error("Event serialization failed", "client", c.id, "object", id, "error", err)
		c.Kill()
		return
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordEventSent()
	}

	if c.out.Len() > c.cfg.WriteLimit {
		logger.Warn("Client write buffer exceeded hard limit", "client", c.id, "buffered", c.out.Len())
		c.Kill()
		return
	}
	if !c.slow && c.out.Len() > c.cfg.WriteThreshold {
		c.slow = true
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.RecordSlowClient()
		}
		c.cfg.SlowClients.Push(c)
	}
	c.flushTask.Schedule()
}

// Slow reports whether the client is currently marked slow.
func (c *Client) Slow() bool {
	return c.slow
}

// Kill tears the session down immediately: every owned object has its
// cycles broken, queued descriptors in both directions are closed, the
// socket is deregistered and closed.
func (c *Client) Kill() {
	if c.dead {
		return
	}
	c.dead = true

	for _, o := range c.objects {
		o.BreakCycles()
	}
	c.objects = nil

	c.inFds.CloseAll()
	c.out.Reset()
	c.flushTask.Cancel()

	if err := c.cfg.Loop.Deregister(c.fd); err != nil {
		logger.Debug("Deregister failed during teardown", "client", c.id, "error", err)
	}
	_ = closeFd(c.fd)
	c.fd = -1

	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordClientDisconnected()
	}
	logger.Debug("Client disconnected", "client", c.id)

	if c.cfg.OnRemove != nil {
		c.cfg.OnRemove(c)
	}
}

// protocolError records a violation, notifies the client, and disconnects
// it. Core state has not been mutated by the offending request.
func (c *Client) protocolError(e *object.ProtocolError) {
	if c.dead {
		return
	}
	logger.Warn("Protocol error",
		"client", c.id,
		"object", e.ObjectID,
		"code", e.Code,
		"message", e.Message)
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordProtocolError()
	}

	c.event(object.DisplayID, proto.DisplayEvtError, func(f *wire.Formatter) {
		f.PutObject(uint32(e.ObjectID))
		f.PutUint(e.Code)
		f.PutString(e.Message)
	})
	// Best-effort delivery of the error event before the socket goes away.
	c.flushNow()
	c.Kill()
}
