package modbin

import (
	"fmt"

	"github.com/jfabienke/3com-packet-driver-sub011/modbin/internal/binary"
)

// Module is a parsed module blob: the 64-byte header, the raw bytes, and the
// decoded patch table. Modules are immutable once parsed.
type Module struct {
	Header  ModuleHeader
	Data    []byte
	Patches []PatchEntry
}

// ParseModule decodes and validates a module blob.
func ParseModule(data []byte) (*Module, error) {
	hdr, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if int(hdr.ModuleSize) != len(data) {
		return nil, fmt.Errorf("modbin: header says %d bytes, blob has %d", hdr.ModuleSize, len(data))
	}

	m := &Module{Header: *hdr, Data: data}
	if hdr.PatchCount > 0 {
		r := binary.NewBytesReader(data[hdr.PatchTable:])
		enhanced := hdr.VersionMajor >= VersionEnhanced
		m.Patches = make([]PatchEntry, 0, hdr.PatchCount)
		var prev int = -1
		for i := 0; i < int(hdr.PatchCount); i++ {
			e, err := decodePatchEntry(r, enhanced)
			if err != nil {
				return nil, fmt.Errorf("modbin: patch %d: %w", i, err)
			}
			if err := m.checkSite(&e); err != nil {
				return nil, fmt.Errorf("modbin: patch %d: %w", i, err)
			}
			// Tables are required to be sorted by site offset.
			if int(e.Offset) < prev {
				return nil, fmt.Errorf("modbin: patch %d at 0x%04x out of order", i, e.Offset)
			}
			prev = int(e.Offset)
			m.Patches = append(m.Patches, e)
		}
	}
	return m, nil
}

// checkSite validates that a patch site lies entirely inside the hot range.
// Cold bytes never reach the image, so a cold patch site is a build error in
// the module itself.
func (m *Module) checkSite(e *PatchEntry) error {
	start := int(e.Offset)
	end := start + int(e.Size)
	if start < int(m.Header.HotStart) || end > int(m.Header.HotEnd) {
		return fmt.Errorf("site [0x%04x,0x%04x) outside hot range [0x%04x,0x%04x)",
			start, end, m.Header.HotStart, m.Header.HotEnd)
	}
	return nil
}

// Hot returns the hot section bytes, the only part copied into an image.
func (m *Module) Hot() []byte {
	return m.Data[m.Header.HotStart:m.Header.HotEnd]
}

// Cold returns the cold section bytes (setup code, discarded at build time).
func (m *Module) Cold() []byte {
	return m.Data[m.Header.ColdStart:m.Header.ColdEnd]
}
