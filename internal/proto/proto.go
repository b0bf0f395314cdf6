// Package proto holds the static interface set: for every interface the
// request and event signatures, the opcode each message occupies, and the
// version each message was introduced in. Binding an interface at version
// V makes visible only the messages whose Since is at or below V.
package proto

import "github.com/rillwm/rill/internal/wire"

// MessageDesc describes one request or event: its opcode-ordered position
// in the interface, its argument signature, and its introduction version.
type MessageDesc struct {
	Name  string
	Since uint32
	Args  []wire.ArgKind
}

// Interface is a static descriptor shared by every object of its kind.
type Interface struct {
	Name     string
	Version  uint32
	Requests []MessageDesc
	Events   []MessageDesc
}

// Request returns the descriptor for a request opcode, or nil when the
// opcode is out of range.
func (i *Interface) Request(opcode uint16) *MessageDesc {
	if int(opcode) >= len(i.Requests) {
		return nil
	}
	return &i.Requests[opcode]
}

// Event returns the descriptor for an event opcode, or nil when the
// opcode is out of range.
func (i *Interface) Event(opcode uint16) *MessageDesc {
	if int(opcode) >= len(i.Events) {
		return nil
	}
	return &i.Events[opcode]
}

// NumRequests returns the number of request opcodes visible at the given
// bound version.
func (i *Interface) NumRequests(version uint32) int {
	n := 0
	for _, r := range i.Requests {
		if r.Since <= version {
			n++
		}
	}
	return n
}

// ByName resolves an interface by protocol name, as used by registry bind.
func ByName(name string) *Interface {
	return registry[name]
}

var registry = map[string]*Interface{}

func register(i *Interface) *Interface {
	registry[i.Name] = i
	return i
}
