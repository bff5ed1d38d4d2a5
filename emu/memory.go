package emu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// MemorySize is the default data memory capacity in bytes.
const MemorySize = 1024

// ErrOutOfRange is returned for accesses that do not fit in memory.
var ErrOutOfRange = errors.New("memory access out of range")

// MemoryPolicy selects how out-of-range accesses are treated.
type MemoryPolicy int

// Memory policies.
const (
	// PolicyIgnore drops the access; loads yield 0.
	PolicyIgnore MemoryPolicy = iota
	// PolicyFault halts the simulation with ErrOutOfRange.
	PolicyFault
)

// String returns the policy name as used in configuration files.
func (p MemoryPolicy) String() string {
	if p == PolicyFault {
		return "fault"
	}
	return "ignore"
}

// ParseMemoryPolicy parses "ignore" or "fault".
func ParseMemoryPolicy(s string) (MemoryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return PolicyIgnore, nil
	case "fault":
		return PolicyFault, nil
	}
	return PolicyIgnore, fmt.Errorf("unknown memory policy %q", s)
}

// Memory is a flat little-endian byte-addressable data memory backed by
// an akita storage.
type Memory struct {
	storage *mem.Storage
	size    uint64
}

// NewMemory creates a zeroed memory of MemorySize bytes.
func NewMemory() *Memory {
	return NewMemoryWithSize(MemorySize)
}

// NewMemoryWithSize creates a zeroed memory of the given capacity.
func NewMemoryWithSize(size uint64) *Memory {
	return &Memory{
		storage: mem.NewStorage(size),
		size:    size,
	}
}

// Size returns the capacity in bytes.
func (m *Memory) Size() uint64 {
	return m.size
}

// InRange reports whether [addr, addr+width) lies inside the memory.
func (m *Memory) InRange(addr uint32, width int) bool {
	return width >= 0 && uint64(addr)+uint64(width) <= m.size
}

// Read returns width bytes starting at addr.
func (m *Memory) Read(addr uint32, width int) ([]byte, error) {
	if !m.InRange(addr, width) {
		return nil, fmt.Errorf("%w: read %d bytes at 0x%x", ErrOutOfRange, width, addr)
	}
	return m.storage.Read(uint64(addr), uint64(width))
}

// Write stores data starting at addr. Nothing is written unless the
// whole range fits.
func (m *Memory) Write(addr uint32, data []byte) error {
	if !m.InRange(addr, len(data)) {
		return fmt.Errorf("%w: write %d bytes at 0x%x", ErrOutOfRange, len(data), addr)
	}
	return m.storage.Write(uint64(addr), data)
}

// Bytes returns a copy of the whole memory.
func (m *Memory) Bytes() []byte {
	data, err := m.storage.Read(0, m.size)
	if err != nil {
		return make([]byte, m.size)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
