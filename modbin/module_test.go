package modbin

import (
	"bytes"
	"testing"

	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
)

func buildTestModule(t *testing.T, fn func(*Builder)) *Module {
	t.Helper()
	b := NewBuilder()
	fn(b)
	blob, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m, err := ParseModule(blob)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	return m
}

func TestModuleRoundTrip(t *testing.T) {
	hot := []byte{0xB8, 0x00, 0x00, 0xEE, 0xC3} // mov ax,imm16; out dx,al; ret
	cold := []byte{0x90, 0x90}

	var entry PatchEntry
	entry.Offset = HeaderSize + 1
	entry.Kind = PatchIO
	entry.Size = 2
	entry.Variants[0][0] = TagImm16IOBase

	m := buildTestModule(t, func(b *Builder) {
		b.Hot(hot).Cold(cold).CPU(hardware.Tier286).NIC(hardware.NICEtherLinkIII)
		b.Caps(hardware.CapISADMA)
		b.Patch(entry)
	})

	if !bytes.Equal(m.Hot(), hot) {
		t.Errorf("hot section: got % x, want % x", m.Hot(), hot)
	}
	if !bytes.Equal(m.Cold(), cold) {
		t.Errorf("cold section: got % x, want % x", m.Cold(), cold)
	}
	if m.Header.CPURequired != hardware.Tier286 {
		t.Errorf("cpu requirement: got %v", m.Header.CPURequired)
	}
	if len(m.Patches) != 1 {
		t.Fatalf("patch count: got %d, want 1", len(m.Patches))
	}
	p := m.Patches[0]
	if p.Kind != PatchIO || p.Offset != HeaderSize+1 || p.Size != 2 {
		t.Errorf("patch entry mismatch: %+v", p)
	}
	if p.Tag() != TagImm16IOBase {
		t.Errorf("tag: got 0x%02x", p.Tag())
	}
}

func TestModuleHotSize(t *testing.T) {
	m := buildTestModule(t, func(b *Builder) {
		b.Hot(make([]byte, 100)).Cold(make([]byte, 40))
	})
	if m.Header.HotSize() != 100 {
		t.Errorf("hot size: got %d, want 100", m.Header.HotSize())
	}
	if m.Header.ColdEnd-m.Header.ColdStart != 40 {
		t.Errorf("cold size: got %d, want 40", m.Header.ColdEnd-m.Header.ColdStart)
	}
}

func TestParseModuleSizeMismatch(t *testing.T) {
	blob, err := NewBuilder().Hot([]byte{0xC3}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := ParseModule(append(blob, 0x00)); err == nil {
		t.Error("expected error for trailing bytes")
	}
}

func TestParseModulePatchOutsideHot(t *testing.T) {
	var entry PatchEntry
	entry.Offset = HeaderSize + 8 // inside cold
	entry.Kind = PatchNOP
	entry.Size = 2

	b := NewBuilder().Hot([]byte{0xC3}).Cold(make([]byte, 16)).Patch(entry)
	if _, err := b.Build(); err == nil {
		t.Error("expected error for patch site in cold section")
	}
}

func TestParseModulePatchesOutOfOrder(t *testing.T) {
	hot := make([]byte, 32)
	mk := func(off uint16) PatchEntry {
		var e PatchEntry
		e.Offset = HeaderSize + off
		e.Kind = PatchNOP
		e.Size = 1
		return e
	}
	b := NewBuilder().Hot(hot).Patch(mk(10)).Patch(mk(4))
	if _, err := b.Build(); err == nil {
		t.Error("expected error for out-of-order patch table")
	}
}

func TestEnhancedPatchEntryRoundTrip(t *testing.T) {
	var e PatchEntry
	e.Offset = HeaderSize
	e.Kind = PatchDMABoundary
	e.Size = 5
	e.Safety = SafetyISADMACheck | SafetyBusMaster
	copy(e.Variants[0][:], []byte{0x90, 0x90, 0x90, 0x90, 0x90})
	copy(e.Variants[SlotISADMACheck][:], []byte{0x3D, 0x00, 0x10, 0x72, 0x01})
	copy(e.Variants[SlotBusMaster][:], []byte{0x90, 0x90, 0x90, 0x90, 0x90})

	m := buildTestModule(t, func(b *Builder) {
		b.Enhanced().Hot(make([]byte, 8)).Patch(e)
	})

	if len(m.Patches) != 1 {
		t.Fatalf("patch count: got %d", len(m.Patches))
	}
	p := m.Patches[0]
	if !p.Enhanced {
		t.Error("entry should be enhanced")
	}
	if p.Safety != SafetyISADMACheck|SafetyBusMaster {
		t.Errorf("safety flags: got %v", p.Safety)
	}
	if !p.Populated(SlotISADMACheck) || !p.Populated(SlotBusMaster) {
		t.Error("safety slots should be populated")
	}
	if p.Populated(SlotBounceCopy) {
		t.Error("undeclared safety slot reported populated")
	}
	if !bytes.Equal(p.Variants[SlotISADMACheck][:], e.Variants[SlotISADMACheck][:]) {
		t.Errorf("safety variant bytes: got % x", p.Variants[SlotISADMACheck])
	}
}

func TestRelocTargetPacking(t *testing.T) {
	var e PatchEntry
	e.SetRelocTarget(7, 0x1234)
	id, off := e.RelocTarget()
	if id != 7 || off != 0x1234 {
		t.Errorf("reloc target: got (%d, 0x%04x), want (7, 0x1234)", id, off)
	}
}

func TestImageHeaderRoundTrip(t *testing.T) {
	h := ImageHeader{
		Version:   ImageVersion,
		ImageSize: 4096,
		API:       32,
		Idle:      100,
		IRQ:       200,
		Data:      1024,
		DataSize:  512,
		Stack:     2048,
		StackSize: 256,
		Uninstall: 300,
		IRQNumber: 10,
		IntNumber: 0x60,
	}
	enc := h.Encode()
	if len(enc) != ImageHeaderSize {
		t.Fatalf("encoded size: got %d, want %d", len(enc), ImageHeaderSize)
	}
	got, err := DecodeImageHeader(enc)
	if err != nil {
		t.Fatalf("DecodeImageHeader: %v", err)
	}
	if *got != h {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, h)
	}
}

func TestImageHeaderBadMagic(t *testing.T) {
	h := ImageHeader{Version: ImageVersion, ImageSize: 64}
	enc := h.Encode()
	enc[0] = 'X'
	if _, err := DecodeImageHeader(enc); err == nil {
		t.Error("expected error for bad magic")
	}
}

func TestImageHeaderBadVersion(t *testing.T) {
	h := ImageHeader{Version: ImageVersion, ImageSize: 64}
	enc := h.Encode()
	enc[4] = 0xFF
	enc[5] = 0xFF
	if _, err := DecodeImageHeader(enc); err == nil {
		t.Error("expected error for bad version")
	}
}
