package wire

import "golang.org/x/sys/unix"

// FdQueue is a FIFO of file descriptors received or queued on the
// ancillary channel. Descriptors are consumed one per fd argument in
// request order.
type FdQueue struct {
	fds []int
}

// Push appends a descriptor to the queue.
func (q *FdQueue) Push(fd int) {
	q.fds = append(q.fds, fd)
}

// Pop removes and returns the oldest descriptor.
func (q *FdQueue) Pop() (int, bool) {
	if len(q.fds) == 0 {
		return -1, false
	}
	fd := q.fds[0]
	q.fds = q.fds[1:]
	return fd, true
}

// Len returns the number of queued descriptors.
func (q *FdQueue) Len() int {
	return len(q.fds)
}

// Take removes and returns up to n descriptors.
func (q *FdQueue) Take(n int) []int {
	if n > len(q.fds) {
		n = len(q.fds)
	}
	out := q.fds[:n]
	q.fds = q.fds[n:]
	return out
}

// Unshift returns descriptors to the front of the queue, preserving order.
// Used when a sendmsg could not transmit its ancillary payload.
func (q *FdQueue) Unshift(fds []int) {
	q.fds = append(append([]int(nil), fds...), q.fds...)
}

// CloseAll closes every queued descriptor and empties the queue. Called at
// client teardown so descriptors whose message never reached the peer do
// not leak.
func (q *FdQueue) CloseAll() {
	for _, fd := range q.fds {
		_ = unix.Close(fd)
	}
	q.fds = q.fds[:0]
}

// InBuffer accumulates bytes read from a client socket until at least one
// complete message is available.
type InBuffer struct {
	data []byte
}

// Append adds freshly read bytes.
func (b *InBuffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// Len returns the number of buffered bytes.
func (b *InBuffer) Len() int {
	return len(b.data)
}

// Next frames the next message. It returns ErrShortBuffer when the header
// or the declared size has not fully arrived, a framing error for a
// malformed header, and otherwise consumes the message and returns its
// header and payload. The payload slice is only valid until the next call.
func (b *InBuffer) Next() (Header, []byte, error) {
	h, err := ParseHeader(b.data)
	if err != nil {
		return Header{}, nil, err
	}
	if len(b.data) < int(h.Size) {
		return Header{}, nil, ErrShortBuffer
	}
	payload := b.data[HeaderSize:h.Size]
	b.data = b.data[h.Size:]
	return h, payload, nil
}

// OutBuffer accumulates serialized events and their file descriptors until
// the socket is writable.
type OutBuffer struct {
	data []byte
	fds  FdQueue
}

// Len returns the number of buffered bytes.
func (b *OutBuffer) Len() int {
	return len(b.data)
}

// Empty reports whether no bytes remain to be flushed.
func (b *OutBuffer) Empty() bool {
	return len(b.data) == 0
}

// Fds exposes the outgoing descriptor queue.
func (b *OutBuffer) Fds() *FdQueue {
	return &b.fds
}

// Consume drops n flushed bytes from the front of the buffer.
func (b *OutBuffer) Consume(n int) {
	b.data = b.data[n:]
	if len(b.data) == 0 {
		b.data = nil
	}
}

// Bytes returns the unflushed bytes.
func (b *OutBuffer) Bytes() []byte {
	return b.data
}

// Reset drops all buffered bytes and closes any queued descriptors.
func (b *OutBuffer) Reset() {
	b.data = nil
	b.fds.CloseAll()
}
