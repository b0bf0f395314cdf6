//go:build linux

package client

// Clients tracks every live session. The acceptor births sessions into
// it; teardown removes them via the session's OnRemove hook.
type Clients struct {
	nextID  uint64
	clients map[uint64]*Client
}

// NewClients creates an empty container.
func NewClients() *Clients {
	return &Clients{clients: make(map[uint64]*Client)}
}

// NextID reserves a session id.
func (cs *Clients) NextID() uint64 {
	cs.nextID++
	return cs.nextID
}

// Add registers a session.
func (cs *Clients) Add(c *Client) {
	cs.clients[c.ID()] = c
}

// Remove forgets a session.
func (cs *Clients) Remove(c *Client) {
	delete(cs.clients, c.ID())
}

// Count returns the number of live sessions.
func (cs *Clients) Count() int {
	return len(cs.clients)
}

// Clear tears down every session. Used at shutdown.
func (cs *Clients) Clear() {
	for _, c := range cs.clients {
		c.Kill()
	}
	cs.clients = make(map[uint64]*Client)
}
