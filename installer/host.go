package installer

import (
	"fmt"
	"sync"
)

// ParagraphSize is the host allocation granularity. Resident blocks are
// sized and based in paragraphs.
const ParagraphSize = 16

// Host allocates resident memory blocks.
type Host interface {
	// Allocate returns a zeroed block of at least size bytes. size is
	// rounded up to the allocation granularity by the installer before the
	// call.
	Allocate(size int) (ResidentBlock, error)
}

// ResidentBlock is one allocated resident memory block.
type ResidentBlock interface {
	// Base returns the block's linear base address. Always paragraph
	// aligned.
	Base() uint32
	// Bytes exposes the block's memory.
	Bytes() []byte
	// Release frees the block. Releasing twice is an error.
	Release() error
}

// VectorTable is the host's interrupt vector table.
type VectorTable interface {
	// Get returns the current handler address for vector v.
	Get(v uint8) uint32
	// Set points vector v at addr and returns the previous handler.
	Set(v uint8, addr uint32) (prev uint32, err error)
}

// IRQVector maps a hardware IRQ line to its interrupt vector: the master
// PIC delivers IRQ 0-7 on vectors 8-0Fh, the slave delivers IRQ 8-15 on
// vectors 70h-77h.
func IRQVector(irq uint8) uint8 {
	if irq < 8 {
		return 8 + irq
	}
	return 0x70 + (irq - 8)
}

// IdleVector is the DOS idle interrupt hooked for idle notifications.
const IdleVector = 0x28

// MemHost is an in-memory Host handing out blocks from a growing linear
// arena. It never reuses released address space, which keeps base addresses
// stable for assertions.
type MemHost struct {
	mu sync.Mutex
	// Limit caps total allocation in bytes; zero means unlimited.
	Limit int

	next      uint32
	allocated int
}

// NewMemHost returns a MemHost whose first block lands at base.
func NewMemHost(base uint32) *MemHost {
	return &MemHost{next: base &^ (ParagraphSize - 1)}
}

// Allocate implements Host.
func (h *MemHost) Allocate(size int) (ResidentBlock, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Limit > 0 && h.allocated+size > h.Limit {
		return nil, fmt.Errorf("out of resident memory: %d of %d bytes in use", h.allocated, h.Limit)
	}
	b := &memBlock{host: h, base: h.next, data: make([]byte, size)}
	h.next += uint32((size + ParagraphSize - 1) &^ (ParagraphSize - 1))
	h.allocated += size
	return b, nil
}

// Resident returns the number of bytes currently allocated.
func (h *MemHost) Resident() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocated
}

type memBlock struct {
	host     *MemHost
	base     uint32
	data     []byte
	released bool
}

func (b *memBlock) Base() uint32  { return b.base }
func (b *memBlock) Bytes() []byte { return b.data }

func (b *memBlock) Release() error {
	if b.released {
		return fmt.Errorf("block at 0x%05x released twice", b.base)
	}
	b.released = true
	b.host.mu.Lock()
	b.host.allocated -= len(b.data)
	b.host.mu.Unlock()
	return nil
}

// MemVectors is an in-memory 256-entry interrupt vector table.
type MemVectors struct {
	table [256]uint32
	sets  int
}

// NewMemVectors returns a table with every vector pointing at a distinct
// sentinel address, so tests can detect both installs and restores.
func NewMemVectors() *MemVectors {
	v := &MemVectors{}
	for i := range v.table {
		v.table[i] = 0xF000_0000 | uint32(i)
	}
	return v
}

// Get implements VectorTable.
func (v *MemVectors) Get(n uint8) uint32 { return v.table[n] }

// Set implements VectorTable.
func (v *MemVectors) Set(n uint8, addr uint32) (uint32, error) {
	prev := v.table[n]
	v.table[n] = addr
	v.sets++
	return prev, nil
}

// Sets returns the number of Set calls, restores included.
func (v *MemVectors) Sets() int { return v.sets }
