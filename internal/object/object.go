// Package object defines the per-client object model: the partitioned
// 32-bit id space, the capability set every protocol object exposes, and
// the protocol-error value that carries (object, code, message) to the
// offending client.
package object

import (
	"fmt"

	"github.com/rillwm/rill/internal/proto"
	"github.com/rillwm/rill/internal/wire"
)

// ID is a per-client 32-bit object identifier.
type ID uint32

const (
	// DisplayID is the implicit wl_display singleton present in every
	// client's table from the moment it connects.
	DisplayID ID = 1

	// ClientIDMin and ClientIDMax bound the range of ids allocated by
	// client requests.
	ClientIDMin ID = 0x00000001
	ClientIDMax ID = 0xFEFFFFFF

	// ServerIDMin and ServerIDMax bound the range of ids the server
	// allocates for event-delivered objects.
	ServerIDMin ID = 0xFF000000
	ServerIDMax ID = 0xFFFFFFFF
)

// ServerAllocated reports whether the id lives in the server range.
func (id ID) ServerAllocated() bool {
	return id >= ServerIDMin
}

func (id ID) String() string {
	return fmt.Sprintf("0x%x", uint32(id))
}

// Object is the capability set stored in a client's object table. Every
// protocol object is pinned for its lifetime: it is referenced by its
// owning client's table plus any protocol-visible peer references, and
// those peer references are severed by BreakCycles at teardown so the
// strong-reference graph collapses.
type Object interface {
	// ID returns the object's id in its owning client's table.
	ID() ID

	// Interface returns the static descriptor for this object.
	Interface() *proto.Interface

	// Version is the version the object was bound or created at. Only
	// requests and events introduced at or below it are visible.
	Version() uint32

	// Dispatch routes one parsed request to the object's handler.
	Dispatch(opcode uint16, msg *wire.Message) error

	// BreakCycles severs peer references so reference cycles through
	// this object become collectible. It is idempotent.
	BreakCycles()
}

// NumRequests returns the number of request opcodes visible on an object
// given the version it was bound at.
func NumRequests(o Object) int {
	return o.Interface().NumRequests(o.Version())
}

// wl_display error codes sent with the display.error event.
const (
	ErrInvalidObject  uint32 = 0
	ErrInvalidMethod  uint32 = 1
	ErrNoMemory       uint32 = 2
	ErrImplementation uint32 = 3
)

// ProtocolError records a client contract violation. The session layer
// formats it as a display.error event and disconnects the client; no
// other client is affected.
type ProtocolError struct {
	ObjectID ID
	Code     uint32
	Message  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %s (code %d): %s", e.ObjectID, e.Code, e.Message)
}

// Errorf builds a ProtocolError with a formatted message.
func Errorf(id ID, code uint32, format string, args ...any) *ProtocolError {
	return &ProtocolError{
		ObjectID: id,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}
