package modbin

import (
	"bytes"
	"testing"

	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
)

func TestHeaderEncodeExactSize(t *testing.T) {
	h := ModuleHeader{
		VersionMajor: VersionLegacy,
		HotStart:     HeaderSize,
		HotEnd:       HeaderSize + 16,
		ColdStart:    HeaderSize + 16,
		ColdEnd:      HeaderSize + 32,
		ModuleSize:   HeaderSize + 32,
	}
	enc := h.Encode()
	if len(enc) != HeaderSize {
		t.Fatalf("encoded header size: got %d, want %d", len(enc), HeaderSize)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := ModuleHeader{
		VersionMajor: VersionEnhanced,
		VersionMinor: 3,
		HotStart:     64,
		HotEnd:       200,
		ColdStart:    200,
		ColdEnd:      300,
		PatchTable:   300,
		PatchCount:   0,
		ModuleSize:   300,
		RequiredMem:  512,
		CPURequired:  hardware.Tier386,
		NICType:      hardware.NICCorkscrew,
		CapFlags:     hardware.CapBusMasterDMA | hardware.CapISADMA,
	}
	enc := h.Encode()
	// Pad so ModuleSize checks elsewhere don't apply; DecodeHeader only
	// needs the first 64 bytes.
	got, err := DecodeHeader(enc)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if *got != h {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, h)
	}
}

func TestHeaderSignatureOnWire(t *testing.T) {
	h := ModuleHeader{VersionMajor: VersionLegacy, HotStart: 64, HotEnd: 64, ModuleSize: 64}
	enc := h.Encode()
	if !bytes.Equal(enc[:7], []byte(Signature)) {
		t.Errorf("signature bytes: got %q, want %q", enc[:7], Signature)
	}
	if enc[7] != 0 {
		t.Errorf("signature terminator: got 0x%02x, want 0x00", enc[7])
	}
}

func TestDecodeHeaderRejects(t *testing.T) {
	base := func() ModuleHeader {
		return ModuleHeader{
			VersionMajor: VersionLegacy,
			HotStart:     64,
			HotEnd:       96,
			ColdStart:    96,
			ColdEnd:      96,
			ModuleSize:   96,
		}
	}

	tests := []struct {
		name      string
		mutateHdr func(*ModuleHeader)
		mutateEnc func([]byte)
	}{
		{name: "bad signature", mutateEnc: func(enc []byte) { enc[0] = 'X' }},
		{name: "missing nul", mutateEnc: func(enc []byte) { enc[7] = 0x20 }},
		{name: "bad version", mutateHdr: func(h *ModuleHeader) { h.VersionMajor = 9 }},
		{name: "hot inverted", mutateHdr: func(h *ModuleHeader) { h.HotStart, h.HotEnd = h.HotEnd, h.HotStart }},
		{name: "hot past end", mutateHdr: func(h *ModuleHeader) { h.HotEnd = h.ModuleSize + 1 }},
		{name: "cold past end", mutateHdr: func(h *ModuleHeader) { h.ColdEnd = h.ModuleSize + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := base()
			if tt.mutateHdr != nil {
				tt.mutateHdr(&h)
			}
			enc := h.Encode()
			if tt.mutateEnc != nil {
				tt.mutateEnc(enc)
			}
			if _, err := DecodeHeader(enc); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestDecodeHeaderTruncated(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, HeaderSize-1)); err == nil {
		t.Error("expected error for truncated header")
	}
}
