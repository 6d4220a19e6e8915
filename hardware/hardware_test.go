package hardware

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCPUTier(t *testing.T) {
	cases := []struct {
		in   string
		want CPUTier
		ok   bool
	}{
		{"8086", Tier8086, true},
		{"80286", Tier286, true},
		{"386", Tier386, true},
		{" 80486 ", Tier486, true},
		{"Pentium", TierPentium, true},
		{"z80", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseCPUTier(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseCPUTier(%q): err = %v", tc.in, err)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("ParseCPUTier(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDescriptorRingGenerations(t *testing.T) {
	ring := map[NICGeneration]bool{
		NICBoomerang: true,
		NICCyclone:   true,
		NICTornado:   true,
	}
	for g := NICAny; g <= NICTornado; g++ {
		if got := g.DescriptorRing(); got != ring[g] {
			t.Errorf("%s.DescriptorRing() = %v, want %v", g, got, ring[g])
		}
	}
}

func TestValuesFromFlags(t *testing.T) {
	desc := Description{
		CPU:                 Tier486,
		NIC:                 NICCorkscrew,
		Platform:            PlatformDMASafe | PlatformVDSAvailable | PlatformWriteBackCache,
		BusMasterRequested:  true,
		BounceBuffersNeeded: true,
	}
	v := ValuesFrom(desc, 0x300, 5, NoDMAChannel, [6]byte{1, 2, 3, 4, 5, 6}, 32)

	for _, want := range []RuntimeFlag{
		RuntimeBusMaster, RuntimeVDS, RuntimeWriteBackCache, RuntimeBounceBuffers,
	} {
		if v.Flags&want == 0 {
			t.Errorf("flag %#x not set", uint16(want))
		}
	}

	// Bus mastering requested but the chipset unsafe: the flag stays off.
	desc.Platform = 0
	v = ValuesFrom(desc, 0x300, 5, NoDMAChannel, [6]byte{}, 32)
	if v.Flags&RuntimeBusMaster != 0 {
		t.Error("bus-master flag set without a DMA-safe chipset")
	}
}

const sampleProfile = `
cpu: 80386
nic: 3c515
features: [cpuid]
platform: [dma_safe, isa_dma]
bus_master: true
io_base: 0x300
irq: 10
dma_channel: 5
mac: "00:60:8C:12:34:56"
`

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hw.yaml")
	if err := os.WriteFile(path, []byte(sampleProfile), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}

	desc, err := p.Description()
	if err != nil {
		t.Fatalf("Description: %v", err)
	}
	if desc.CPU != Tier386 || desc.NIC != NICCorkscrew {
		t.Errorf("description: got cpu %v nic %v", desc.CPU, desc.NIC)
	}
	if !desc.CPUFeatures.Has(FeatureCPUID) {
		t.Error("cpuid feature not parsed")
	}
	if !desc.Platform.Has(PlatformDMASafe|PlatformISADMA) || !desc.BusMasterRequested {
		t.Error("platform flags not parsed")
	}

	v, err := p.Values()
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if v.IOBase != 0x300 || v.IRQ != 10 || v.DMAChannel != 5 {
		t.Errorf("values: %+v", v)
	}
	if v.MAC != [6]byte{0x00, 0x60, 0x8C, 0x12, 0x34, 0x56} {
		t.Errorf("mac: % x", v.MAC)
	}
}

func TestProfileDMAChannelDefaultsToNone(t *testing.T) {
	p := Profile{CPU: "8086", NIC: "3c509b", MAC: "00:60:8C:00:00:01"}
	v, err := p.Values()
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if v.DMAChannel != NoDMAChannel {
		t.Errorf("dma channel: got %d, want sentinel", v.DMAChannel)
	}
}

func TestProfileRejectsBadValues(t *testing.T) {
	bad := []Profile{
		{CPU: "z80", NIC: "3c509b"},
		{CPU: "8086", NIC: "ne2000"},
		{CPU: "8086", NIC: "3c509b", Features: []string{"mmx"}},
		{CPU: "8086", NIC: "3c509b", Platform: []string{"ebda"}},
		{CPU: "8086", NIC: "3c509b", MAC: "not-a-mac"},
	}
	for i, p := range bad {
		if _, err := p.Values(); err == nil {
			t.Errorf("profile %d: expected error", i)
		}
	}
}
