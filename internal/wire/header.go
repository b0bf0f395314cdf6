// Package wire implements the message codec: framing of length-tagged
// little-endian messages and the typed argument encoding, including file
// descriptors carried out-of-band on the socket's ancillary channel.
package wire

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed message header length in bytes.
const HeaderSize = 8

// MaxMessageSize is the largest event Formatter.End accepts. The 16-bit
// size field itself could express up to 65535 bytes; inbound framing does
// not check this constant.
const MaxMessageSize = 1 << 12

// Header is the leading 8 bytes of every message: the target object id,
// the opcode, and the total message size including the header itself.
type Header struct {
	ObjectID uint32
	Opcode   uint16
	Size     uint16
}

// ParseHeader decodes a message header from the front of buf.
//
// It returns ErrShortBuffer when fewer than HeaderSize bytes are available
// so the session can wait for more data, and a framing error when the
// declared size is malformed (smaller than the header or not a multiple
// of 4).
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortBuffer
	}

	h := Header{
		ObjectID: binary.LittleEndian.Uint32(buf[0:4]),
		Opcode:   binary.LittleEndian.Uint16(buf[4:6]),
		Size:     binary.LittleEndian.Uint16(buf[6:8]),
	}

	if h.Size < HeaderSize {
		return Header{}, fmt.Errorf("message size %d smaller than header", h.Size)
	}
	if h.Size%4 != 0 {
		return Header{}, fmt.Errorf("message size %d not a multiple of 4", h.Size)
	}

	return h, nil
}

// pad returns the number of zero bytes needed to align n to 4 bytes.
func pad(n int) int {
	return (4 - (n % 4)) % 4
}
