package modbin

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin/internal/binary"
)

// HeaderSize is the exact serialized size of a ModuleHeader.
const HeaderSize = 64

// Signature is the 7-byte module signature, NUL terminated on the wire.
const Signature = "3CPKTMD"

// Supported header format versions.
const (
	// VersionLegacy modules carry 29-byte five-variant patch entries.
	VersionLegacy = 1
	// VersionEnhanced modules carry 46-byte eight-variant patch entries
	// with safety gating.
	VersionEnhanced = 2
)

const headerReserved = 34

// ModuleHeader is the 64-byte header at the start of every module blob.
//
// Wire layout (little-endian):
//
//	signature(7) nul(1) ver_major(1) ver_minor(1)
//	hot_start(2) hot_end(2) cold_start(2) cold_end(2)
//	patch_table_offset(2) patch_count(2)
//	module_size(2) required_memory(2)
//	cpu_requirements(1) nic_type(1) cap_flags(2)
//	reserved(34)
type ModuleHeader struct {
	VersionMajor uint8
	VersionMinor uint8
	HotStart     uint16
	HotEnd       uint16
	ColdStart    uint16
	ColdEnd      uint16
	PatchTable   uint16
	PatchCount   uint16
	ModuleSize   uint16
	RequiredMem  uint16
	CPURequired  hardware.CPUTier
	NICType      hardware.NICGeneration
	CapFlags     hardware.CapFlags
}

// HotSize returns the number of hot bytes the module contributes to an image.
func (h *ModuleHeader) HotSize() uint16 {
	return h.HotEnd - h.HotStart
}

// Validate checks the structural invariants that must hold for every module.
func (h *ModuleHeader) Validate() error {
	if h.VersionMajor != VersionLegacy && h.VersionMajor != VersionEnhanced {
		return fmt.Errorf("unsupported module format version %d.%d", h.VersionMajor, h.VersionMinor)
	}
	if h.HotStart > h.HotEnd {
		return fmt.Errorf("hot range inverted: start 0x%04x > end 0x%04x", h.HotStart, h.HotEnd)
	}
	if h.HotEnd > h.ModuleSize {
		return fmt.Errorf("hot end 0x%04x exceeds module size 0x%04x", h.HotEnd, h.ModuleSize)
	}
	if h.ColdStart > h.ColdEnd || h.ColdEnd > h.ModuleSize {
		return fmt.Errorf("cold range [0x%04x,0x%04x) outside module of size 0x%04x",
			h.ColdStart, h.ColdEnd, h.ModuleSize)
	}
	if h.PatchCount > 0 {
		end := int(h.PatchTable) + int(h.PatchCount)*h.PatchEntrySize()
		if int(h.PatchTable) < HeaderSize || end > int(h.ModuleSize) {
			return fmt.Errorf("patch table [0x%04x,0x%04x) outside module of size 0x%04x",
				h.PatchTable, end, h.ModuleSize)
		}
	}
	return nil
}

// PatchEntrySize returns the wire size of one patch entry for this header's
// format version.
func (h *ModuleHeader) PatchEntrySize() int {
	if h.VersionMajor >= VersionEnhanced {
		return enhancedEntrySize
	}
	return legacyEntrySize
}

// Encode serializes the header to exactly HeaderSize bytes.
func (h *ModuleHeader) Encode() []byte {
	w := binary.NewWriter()
	w.WriteBytes([]byte(Signature))
	w.Byte(0)
	w.Byte(h.VersionMajor)
	w.Byte(h.VersionMinor)
	w.WriteU16(h.HotStart)
	w.WriteU16(h.HotEnd)
	w.WriteU16(h.ColdStart)
	w.WriteU16(h.ColdEnd)
	w.WriteU16(h.PatchTable)
	w.WriteU16(h.PatchCount)
	w.WriteU16(h.ModuleSize)
	w.WriteU16(h.RequiredMem)
	w.Byte(uint8(h.CPURequired))
	w.Byte(uint8(h.NICType))
	w.WriteU16(uint16(h.CapFlags))
	w.Zero(headerReserved)
	return w.Bytes()
}

// DecodeHeader parses a ModuleHeader from the start of data.
func DecodeHeader(data []byte) (*ModuleHeader, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("modbin: header truncated: %d bytes", len(data))
	}
	r := binary.NewBytesReader(data)

	sig, err := r.ReadBytes(len(Signature))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(sig, []byte(Signature)) {
		return nil, r.WrapError("header", fmt.Errorf("bad signature %q", sig))
	}
	nul, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if nul != 0 {
		return nil, r.WrapError("header", errors.New("signature not NUL terminated"))
	}

	var h ModuleHeader
	if h.VersionMajor, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if h.VersionMinor, err = r.ReadByte(); err != nil {
		return nil, err
	}
	fields := []*uint16{
		&h.HotStart, &h.HotEnd, &h.ColdStart, &h.ColdEnd,
		&h.PatchTable, &h.PatchCount, &h.ModuleSize, &h.RequiredMem,
	}
	for _, f := range fields {
		if *f, err = r.ReadU16(); err != nil {
			return nil, err
		}
	}
	cpu, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	h.CPURequired = hardware.CPUTier(cpu)
	nic, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	h.NICType = hardware.NICGeneration(nic)
	caps, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	h.CapFlags = hardware.CapFlags(caps)
	if err := r.Skip(headerReserved); err != nil {
		return nil, err
	}

	if err := h.Validate(); err != nil {
		return nil, r.WrapError("header", err)
	}
	return &h, nil
}
