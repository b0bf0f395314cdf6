package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/rillwm/rill/internal/fixed"
)

// Formatter serializes one event into an OutBuffer. Begin writes a
// placeholder header, the typed Put methods append arguments, and End
// patches the final size. A file descriptor handed to PutFd is owned by
// the buffer from that point on: it is either transmitted with sendmsg or
// closed at teardown.
//
// A message is always completed or the buffer is left untouched; partial
// messages never reach the socket.
type Formatter struct {
	out   *OutBuffer
	start int
	fds   []int
	err   error
}

// NewFormatter starts a message for (objectID, opcode) on out.
func NewFormatter(out *OutBuffer, objectID uint32, opcode uint16) *Formatter {
	f := &Formatter{out: out, start: len(out.data)}
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], objectID)
	binary.LittleEndian.PutUint16(hdr[4:6], opcode)
	out.data = append(out.data, hdr[:]...)
	return f
}

// PutUint appends an unsigned word.
func (f *Formatter) PutUint(v uint32) *Formatter {
	var w [4]byte
	binary.LittleEndian.PutUint32(w[:], v)
	f.out.data = append(f.out.data, w[:]...)
	return f
}

// PutInt appends a signed word.
func (f *Formatter) PutInt(v int32) *Formatter {
	return f.PutUint(uint32(v))
}

// PutFixed appends a 24.8 fixed-point value.
func (f *Formatter) PutFixed(v fixed.Fixed) *Formatter {
	return f.PutUint(uint32(int32(v)))
}

// PutString appends a length-prefixed NUL-terminated string, padded to 4
// bytes.
func (f *Formatter) PutString(s string) *Formatter {
	length := len(s) + 1
	f.PutUint(uint32(length))
	f.out.data = append(f.out.data, s...)
	f.out.data = append(f.out.data, 0)
	for i := 0; i < pad(length); i++ {
		f.out.data = append(f.out.data, 0)
	}
	return f
}

// PutOptString appends a string that may be absent; nil encodes as length 0.
func (f *Formatter) PutOptString(s *string) *Formatter {
	if s == nil {
		return f.PutUint(0)
	}
	return f.PutString(*s)
}

// PutArray appends a length-prefixed byte array, padded to 4 bytes.
func (f *Formatter) PutArray(b []byte) *Formatter {
	f.PutUint(uint32(len(b)))
	f.out.data = append(f.out.data, b...)
	for i := 0; i < pad(len(b)); i++ {
		f.out.data = append(f.out.data, 0)
	}
	return f
}

// PutObject appends an object id word; 0 encodes a nil reference.
func (f *Formatter) PutObject(id uint32) *Formatter {
	return f.PutUint(id)
}

// PutFd queues a file descriptor on the ancillary channel. It contributes
// no message bytes.
func (f *Formatter) PutFd(fd int) *Formatter {
	f.fds = append(f.fds, fd)
	return f
}

// End patches the message size and commits queued descriptors. A message
// that exceeds the wire-format ceiling rolls the buffer back and returns
// an error.
func (f *Formatter) End() error {
	if f.err != nil {
		f.out.data = f.out.data[:f.start]
		return f.err
	}
	size := len(f.out.data) - f.start
	if size > MaxMessageSize {
		f.out.data = f.out.data[:f.start]
		return fmt.Errorf("event of %d bytes exceeds maximum message size", size)
	}
	binary.LittleEndian.PutUint16(f.out.data[f.start+6:f.start+8], uint16(size))
	for _, fd := range f.fds {
		f.out.fds.Push(fd)
	}
	return nil
}
