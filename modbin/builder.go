package modbin

import (
	"fmt"

	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin/internal/binary"
)

// Builder assembles a module blob: header, hot section, cold section and
// patch table. Used by tests and the catalog generation tool; the shipped
// driver modules are produced by the assembler with the same layout.
type Builder struct {
	versionMajor uint8
	versionMinor uint8
	cpu          hardware.CPUTier
	nic          hardware.NICGeneration
	caps         hardware.CapFlags
	requiredMem  uint16
	hot          []byte
	cold         []byte
	patches      []PatchEntry
}

// NewBuilder creates a Builder for a legacy-format module.
func NewBuilder() *Builder {
	return &Builder{versionMajor: VersionLegacy}
}

// Enhanced switches the module to the enhanced patch-entry format.
func (b *Builder) Enhanced() *Builder {
	b.versionMajor = VersionEnhanced
	return b
}

// Hot appends bytes to the hot section.
func (b *Builder) Hot(code []byte) *Builder {
	b.hot = append(b.hot, code...)
	return b
}

// Cold appends bytes to the cold section.
func (b *Builder) Cold(code []byte) *Builder {
	b.cold = append(b.cold, code...)
	return b
}

// CPU sets the minimum CPU tier.
func (b *Builder) CPU(t hardware.CPUTier) *Builder {
	b.cpu = t
	return b
}

// NIC sets the required NIC generation tag.
func (b *Builder) NIC(g hardware.NICGeneration) *Builder {
	b.nic = g
	return b
}

// Caps sets the capability-requirement bitset.
func (b *Builder) Caps(c hardware.CapFlags) *Builder {
	b.caps = c
	return b
}

// RequiredMem sets the resident memory requirement beyond the hot bytes.
func (b *Builder) RequiredMem(n uint16) *Builder {
	b.requiredMem = n
	return b
}

// Patch appends a patch-table entry. Entry offsets are relative to the
// module start; use HotOffset to convert a hot-section offset.
func (b *Builder) Patch(e PatchEntry) *Builder {
	e.Enhanced = b.versionMajor >= VersionEnhanced
	b.patches = append(b.patches, e)
	return b
}

// HotOffset converts an offset within the hot section into a module-start
// relative offset as stored in patch entries.
func (b *Builder) HotOffset(off uint16) uint16 {
	return HeaderSize + off
}

// Build assembles and validates the blob.
func (b *Builder) Build() ([]byte, error) {
	entrySize := legacyEntrySize
	if b.versionMajor >= VersionEnhanced {
		entrySize = enhancedEntrySize
	}

	hotStart := uint16(HeaderSize)
	hotEnd := hotStart + uint16(len(b.hot))
	coldStart := hotEnd
	coldEnd := coldStart + uint16(len(b.cold))
	patchTable := coldEnd
	total := int(patchTable) + len(b.patches)*entrySize
	if total > 0xFFFF {
		return nil, fmt.Errorf("modbin: module too large: %d bytes", total)
	}

	hdr := ModuleHeader{
		VersionMajor: b.versionMajor,
		VersionMinor: b.versionMinor,
		HotStart:     hotStart,
		HotEnd:       hotEnd,
		ColdStart:    coldStart,
		ColdEnd:      coldEnd,
		PatchTable:   patchTable,
		PatchCount:   uint16(len(b.patches)),
		ModuleSize:   uint16(total),
		RequiredMem:  b.requiredMem,
		CPURequired:  b.cpu,
		NICType:      b.nic,
		CapFlags:     b.caps,
	}

	w := binary.NewWriter()
	w.WriteBytes(hdr.Encode())
	w.WriteBytes(b.hot)
	w.WriteBytes(b.cold)
	for i := range b.patches {
		b.patches[i].encode(w)
	}

	blob := w.Bytes()
	if _, err := ParseModule(blob); err != nil {
		return nil, fmt.Errorf("modbin: built module does not round-trip: %w", err)
	}
	return blob, nil
}
