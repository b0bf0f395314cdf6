//go:build linux

package client

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/logger"
	"github.com/rillwm/rill/internal/loop"
	"github.com/rillwm/rill/internal/object"
	"github.com/rillwm/rill/internal/wire"
	"github.com/rillwm/rill/pkg/bufpool"
)

// readChunk is the per-recvmsg scratch size. Several messages are usually
// drained per readiness notification.
const readChunk = 4096

// oobSpace is the ancillary buffer size per recvmsg; enough for the
// largest SCM_RIGHTS payload a client can usefully send.
const oobSpace = 256

func closeFd(fd int) error {
	return unix.Close(fd)
}

// onSocket is the loop handler for the client socket.
func (c *Client) onSocket(m loop.Mask) error {
	if c.dead {
		return nil
	}

	if m&(loop.Hup|loop.Err) != 0 && m&loop.Readable == 0 {
		logger.Debug("Client hangup", "client", c.id)
		c.Kill()
		return nil
	}

	if m&loop.Writable != 0 {
		c.flushNow()
		if c.dead {
			return nil
		}
	}

	if m&loop.Readable != 0 {
		if err := c.readAndDispatch(); err != nil {
			// Local I/O and framing failures are isolated to this client.
			logger.Debug("Client read failed", "client", c.id, "error", err)
			c.Kill()
		}
	}

	return nil
}

// readAndDispatch drains the socket and dispatches every complete message.
func (c *Client) readAndDispatch() error {
	scratch := bufpool.Get(readChunk)
	defer bufpool.Put(scratch)
	oob := make([]byte, oobSpace)

	eof := false
	for {
		n, oobn, _, _, err := unix.Recvmsg(c.fd, scratch, oob, unix.MSG_DONTWAIT|unix.MSG_CMSG_CLOEXEC)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if oobn > 0 {
			if err := c.queueIncomingFds(oob[:oobn]); err != nil {
				return err
			}
		}
		if n == 0 {
			eof = true
			break
		}
		c.in.Append(scratch[:n])
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.RecordBytesRead(n)
		}
	}

	for !c.dead {
		h, payload, err := c.in.Next()
		if err != nil {
			if errors.Is(err, wire.ErrShortBuffer) {
				break
			}
			c.protocolError(object.Errorf(object.DisplayID, object.ErrInvalidObject,
				"malformed message framing: %v", err))
			return nil
		}
		if int(h.Size) > c.cfg.MaxMessageSize {
			c.protocolError(object.Errorf(object.ID(h.ObjectID), object.ErrInvalidMethod,
				"message of %d bytes exceeds limit", h.Size))
			return nil
		}
		c.dispatch(h, payload)
	}

	if eof && !c.dead {
		logger.Debug("Client closed connection", "client", c.id)
		c.Kill()
	}
	return nil
}

// queueIncomingFds parses SCM_RIGHTS control messages into the fd
// in-queue, FIFO. Descriptors beyond the configured bound are a protocol
// error.
func (c *Client) queueIncomingFds(oob []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return err
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		for _, fd := range fds {
			if c.inFds.Len() >= c.cfg.MaxQueuedFds {
				_ = unix.Close(fd)
				c.protocolError(object.Errorf(object.DisplayID, object.ErrImplementation,
					"too many queued file descriptors"))
				return nil
			}
			c.inFds.Push(fd)
		}
	}
	return nil
}

// dispatch routes one framed message: object lookup, opcode and version
// check, signature-driven argument parse, handler invocation.
func (c *Client) dispatch(h wire.Header, payload []byte) {
	obj, ok := c.Get(object.ID(h.ObjectID))
	if !ok {
		c.protocolError(object.Errorf(object.ID(h.ObjectID), object.ErrInvalidObject,
			"request for unknown object %s", object.ID(h.ObjectID)))
		return
	}

	iface := obj.Interface()
	desc := iface.Request(h.Opcode)
	if desc == nil || desc.Since > obj.Version() {
		c.protocolError(object.Errorf(obj.ID(), object.ErrInvalidMethod,
			"invalid request %d on %s version %d", h.Opcode, iface.Name, obj.Version()))
		return
	}

	args, err := wire.ParseArgs(desc.Args, payload, &c.inFds)
	if err != nil {
		c.protocolError(object.Errorf(obj.ID(), object.ErrInvalidMethod,
			"cannot parse %s.%s: %v", iface.Name, desc.Name, err))
		return
	}

	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordRequestDispatched(iface.Name, desc.Name)
	}

	msg := &wire.Message{Header: h, Args: args}
	if err := obj.Dispatch(h.Opcode, msg); err != nil {
		var pe *object.ProtocolError
		if errors.As(err, &pe) {
			c.protocolError(pe)
			return
		}
		c.protocolError(object.Errorf(obj.ID(), object.ErrImplementation,
			"%s.%s failed: %v", iface.Name, desc.Name, err))
	}
}

// flushNow writes as much of the out buffer as the socket accepts.
// Each sendmsg carries up to maxFdsPerFlush queued descriptors; a descriptor
// that has been transmitted is closed, relinquishing ownership. On EAGAIN
// the remainder stays buffered and EPOLLOUT interest is enabled; a
// partially buffered message is always either completed later or the
// client is disconnected.
func (c *Client) flushNow() {
	if c.dead || c.out.Empty() {
		c.updateWriteInterest()
		return
	}

	for !c.out.Empty() {
		fds := c.out.Fds().Take(maxFdsPerFlush)
		var oob []byte
		if len(fds) > 0 {
			oob = unix.UnixRights(fds...)
		}

		n, err := unix.SendmsgN(c.fd, c.out.Bytes(), oob, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
		if err != nil {
			c.out.Fds().Unshift(fds)
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				break
			}
			logger.Debug("Client write failed", "client", c.id, "error", err)
			c.Kill()
			return
		}

		for _, fd := range fds {
			_ = unix.Close(fd)
		}
		c.out.Consume(n)
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.RecordBytesWritten(n)
		}
	}

	if c.slow && c.out.Len() <= c.cfg.WriteThreshold/2 {
		c.slow = false
	}
	c.updateWriteInterest()
}

// maxFdsPerFlush bounds the SCM_RIGHTS payload of one sendmsg.
const maxFdsPerFlush = 28

// Flush attempts to drain the write buffer immediately. Used by the
// slow-client drain task.
func (c *Client) Flush() {
	c.flushNow()
}

// updateWriteInterest keeps EPOLLOUT enabled exactly while bytes remain.
func (c *Client) updateWriteInterest() {
	if c.dead {
		return
	}
	want := !c.out.Empty()
	if want == c.writable {
		return
	}
	mask := loop.Readable
	if want {
		mask |= loop.Writable
	}
	if err := c.cfg.Loop.Modify(c.fd, mask); err != nil {
		logger.Debug("Modify write interest failed", "client", c.id, "error", err)
		c.Kill()
		return
	}
	c.writable = want
}
