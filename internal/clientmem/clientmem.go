//go:build linux

// Package clientmem maps client-provided shared memory. A Mem is
// reference-counted by the buffers viewing it; the mapping is released
// only when the count reaches zero, so a pool destroyed while buffers are
// live stays mapped until the last buffer goes away.
package clientmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mem is one mmap'd client memory region.
type Mem struct {
	fd   int
	data []byte
	refs int
	dead bool
}

// New maps size bytes of the descriptor. The descriptor stays open for
// later Resize calls and is closed with the final unmap. The mapping
// starts with one reference held by the creating pool.
func New(fd int, size int) (*Mem, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid pool size %d", size)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return &Mem{fd: fd, data: data, refs: 1}, nil
}

// Len returns the mapped size.
func (m *Mem) Len() int {
	return len(m.data)
}

// Bytes returns the mapping at the given offset.
func (m *Mem) Bytes(offset int) []byte {
	return m.data[offset:]
}

// Resize remaps the region at a larger size. Shrinking is refused because
// live buffers may view the tail.
func (m *Mem) Resize(size int) error {
	if m.dead {
		return fmt.Errorf("resize of unmapped memory")
	}
	if size < len(m.data) {
		return fmt.Errorf("cannot shrink pool from %d to %d", len(m.data), size)
	}
	if size == len(m.data) {
		return nil
	}
	data, err := unix.Mmap(m.fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("remap to %d bytes: %w", size, err)
	}
	_ = unix.Munmap(m.data)
	m.data = data
	return nil
}

// Ref takes a reference on behalf of a viewing buffer.
func (m *Mem) Ref() {
	m.refs++
}

// Unref drops a reference; the final drop unmaps and closes the
// descriptor.
func (m *Mem) Unref() {
	m.refs--
	if m.refs > 0 || m.dead {
		return
	}
	m.dead = true
	_ = unix.Munmap(m.data)
	m.data = nil
	_ = unix.Close(m.fd)
	m.fd = -1
}
