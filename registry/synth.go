package registry

import (
	"fmt"

	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin"
)

// synthSpec drives SyntheticCatalog. Hot sizes and patch sites are
// representative of the real assembled modules; the code bytes are
// deterministic placeholders so builds are reproducible.
type synthSpec struct {
	id      ID
	ref     uint8
	cat     Category
	nic     hardware.NICGeneration
	minCPU  hardware.CPUTier
	caps    hardware.CapFlags
	hotSize uint16
	align   uint16
	exports map[Entry]Export
	patches func(*synthSpec) []modbin.PatchEntry
	format  uint8 // modbin.VersionLegacy or VersionEnhanced
}

func nicPatches(s *synthSpec) []modbin.PatchEntry {
	var io, irq, mac modbin.PatchEntry
	io.Offset = modbin.HeaderSize + 0x02
	io.Kind = modbin.PatchIO
	io.Size = 2
	io.Variants[0][0] = modbin.TagImm16IOBase

	irq.Offset = modbin.HeaderSize + 0x08
	irq.Kind = modbin.PatchImm8
	irq.Size = 1
	irq.Variants[0][0] = modbin.TagImm8IRQ

	mac.Offset = modbin.HeaderSize + 0x10
	mac.Kind = modbin.PatchCopy
	mac.Size = 6
	mac.Variants[0][0] = modbin.TagCopyMAC

	return []modbin.PatchEntry{io, irq, mac}
}

func copyPatches(*synthSpec) []modbin.PatchEntry {
	// One branch site selecting the CPU-tuned inner copy loop.
	var e modbin.PatchEntry
	e.Offset = modbin.HeaderSize + 0x04
	e.Kind = modbin.PatchBranch
	e.Size = 5
	copy(e.Variants[0][:], []byte{0xF3, 0xA4, 0x90, 0x90, 0x90}) // rep movsb
	copy(e.Variants[2][:], []byte{0xF3, 0x66, 0xA5, 0x90, 0x90}) // rep movsd
	copy(e.Variants[4][:], []byte{0xF3, 0x66, 0xA5, 0x0F, 0x18}) // movsd + prefetch
	return []modbin.PatchEntry{e}
}

func cachePatches(*synthSpec) []modbin.PatchEntry {
	var pre, post modbin.PatchEntry
	pre.Offset = modbin.HeaderSize + 0x02
	pre.Kind = modbin.PatchCachePre
	pre.Size = 3
	copy(pre.Variants[0][:], []byte{0x90, 0x90, 0x90, 0x00, 0x00})
	copy(pre.Variants[2][:], []byte{0x0F, 0x09, 0x90, 0x00, 0x00}) // wbinvd

	post.Offset = modbin.HeaderSize + 0x08
	post.Kind = modbin.PatchCachePost
	post.Size = 3
	copy(post.Variants[0][:], []byte{0x90, 0x90, 0x90, 0x00, 0x00})
	copy(post.Variants[2][:], []byte{0x0F, 0x09, 0x90, 0x00, 0x00})
	return []modbin.PatchEntry{pre, post}
}

func busMasterPatches(*synthSpec) []modbin.PatchEntry {
	// Boundary check gated on DMA policy: the ISA boundary-check variant
	// applies only while bus mastering is off, the bus-master variant only
	// while it is on.
	var e modbin.PatchEntry
	e.Offset = modbin.HeaderSize + 0x06
	e.Kind = modbin.PatchDMABoundary
	e.Size = 5
	e.Safety = modbin.SafetyISADMACheck | modbin.SafetyBusMaster
	copy(e.Variants[0][:], []byte{0x90, 0x90, 0x90, 0x90, 0x90})
	copy(e.Variants[modbin.SlotISADMACheck][:], []byte{0x3D, 0xFF, 0xFF, 0x77, 0x02})
	copy(e.Variants[modbin.SlotBusMaster][:], []byte{0x0F, 0x18, 0x90, 0x90, 0x90})

	var ch modbin.PatchEntry
	ch.Offset = modbin.HeaderSize + 0x10
	ch.Kind = modbin.PatchImm8
	ch.Size = 1
	ch.Variants[0][0] = modbin.TagImm8DMA
	return []modbin.PatchEntry{e, ch}
}

func bouncePatches(*synthSpec) []modbin.PatchEntry {
	var e modbin.PatchEntry
	e.Offset = modbin.HeaderSize + 0x04
	e.Kind = modbin.PatchBounceCopy
	e.Size = 5
	e.Safety = modbin.SafetyBounceCopy
	copy(e.Variants[0][:], []byte{0xF3, 0xA4, 0x90, 0x90, 0x90})
	copy(e.Variants[modbin.SlotBounceCopy][:], []byte{0xF3, 0x66, 0xA5, 0x90, 0x90})
	return []modbin.PatchEntry{e}
}

// isrPatches wires the ISR dispatch to the packet buffer and data section
// via cross-module relocations.
func isrPatches(*synthSpec) []modbin.PatchEntry {
	var flags modbin.PatchEntry
	flags.Offset = modbin.HeaderSize + 0x02
	flags.Kind = modbin.PatchImm16
	flags.Size = 2
	flags.Variants[0][0] = modbin.TagImm16Flags

	var call modbin.PatchEntry
	call.Offset = modbin.HeaderSize + 0x08
	call.Kind = modbin.PatchRelocNear
	call.Size = 2
	call.SetRelocTarget(2, 0x0000) // mod_pktbuf hot start

	var far modbin.PatchEntry
	far.Offset = modbin.HeaderSize + 0x10
	far.Kind = modbin.PatchRelocSegOfs
	far.Size = 4
	far.SetRelocTarget(3, 0x0000) // mod_data hot start

	return []modbin.PatchEntry{flags, call, far}
}

func synthSpecs() []synthSpec {
	specs := []synthSpec{
		{id: ModISR, ref: 0, cat: CategoryCore, hotSize: 0xC0, align: 16, patches: isrPatches},
		{id: ModIRQ, ref: 1, cat: CategoryCore, hotSize: 0x80, align: 16,
			exports: map[Entry]Export{EntryIRQ: {Offset: 0x00}}},
		{id: ModPktBuf, ref: 2, cat: CategoryCore, hotSize: 0x600, align: 16},
		{id: ModData, ref: 3, cat: CategoryCore, hotSize: 0x280, align: 16,
			exports: map[Entry]Export{
				EntryData:  {Offset: 0x000, Size: 0x180},
				EntryStack: {Offset: 0x180, Size: 0x100},
			}},

		{id: Mod3C509B, ref: 4, cat: CategoryNIC, nic: hardware.NICEtherLinkIII,
			hotSize: 0x240, patches: nicPatches},
		{id: Mod3C515, ref: 5, cat: CategoryNIC, nic: hardware.NICCorkscrew,
			caps: hardware.CapBusMasterDMA, hotSize: 0x2C0, patches: nicPatches},
		{id: ModVortex, ref: 6, cat: CategoryNIC, nic: hardware.NICVortex,
			minCPU: hardware.Tier386, caps: hardware.CapPCIBus, hotSize: 0x260, patches: nicPatches},
		{id: ModBoomerang, ref: 7, cat: CategoryNIC, nic: hardware.NICBoomerang,
			minCPU: hardware.Tier486,
			caps:   hardware.CapPCIBus | hardware.CapBusMasterDMA | hardware.CapDescRing,
			hotSize: 0x300, patches: nicPatches},
		{id: ModCyclone, ref: 8, cat: CategoryNIC, nic: hardware.NICCyclone,
			minCPU: hardware.Tier486,
			caps:   hardware.CapPCIBus | hardware.CapBusMasterDMA | hardware.CapDescRing,
			hotSize: 0x300, patches: nicPatches},
		{id: ModTornado, ref: 9, cat: CategoryNIC, nic: hardware.NICTornado,
			minCPU: hardware.Tier486,
			caps:   hardware.CapPCIBus | hardware.CapBusMasterDMA | hardware.CapDescRing,
			hotSize: 0x300, patches: nicPatches},

		{id: ModPIO, ref: 10, cat: CategoryDMA, hotSize: 0x120},
		{id: ModDMAISA, ref: 11, cat: CategoryDMA, caps: hardware.CapISADMA, hotSize: 0x160},
		{id: ModDMABusMaster, ref: 12, cat: CategoryDMA, minCPU: hardware.Tier386,
			caps: hardware.CapBusMasterDMA, hotSize: 0x1C0,
			format: modbin.VersionEnhanced, patches: busMasterPatches},
		{id: ModDMADescRing, ref: 13, cat: CategoryDMA, minCPU: hardware.Tier486,
			caps: hardware.CapBusMasterDMA | hardware.CapDescRing, hotSize: 0x220},
		{id: ModDMABounce, ref: 14, cat: CategorySupport, caps: hardware.CapBounceBuffer,
			hotSize: 0xA0, format: modbin.VersionEnhanced, patches: bouncePatches},

		{id: ModCacheNone, ref: 15, cat: CategoryCache, hotSize: 0x20},
		{id: ModCacheWBINVD, ref: 16, cat: CategoryCache, minCPU: hardware.Tier386,
			caps: hardware.CapWBINVD, hotSize: 0x40, patches: cachePatches},
		{id: ModCacheCLFLUSH, ref: 17, cat: CategoryCache, minCPU: hardware.TierPentium,
			caps: hardware.CapCLFLUSH, hotSize: 0x50, patches: cachePatches},
		{id: ModCacheSnoop, ref: 18, cat: CategorySupport, minCPU: hardware.Tier386,
			caps: hardware.CapCacheSnoop | hardware.CapPCIBus, hotSize: 0x60},

		{id: ModCopy8086, ref: 19, cat: CategoryCopy, hotSize: 0x40, patches: copyPatches},
		{id: ModCopy286, ref: 20, cat: CategoryCopy, minCPU: hardware.Tier286,
			hotSize: 0x40, patches: copyPatches},
		{id: ModCopy386, ref: 21, cat: CategoryCopy, minCPU: hardware.Tier386,
			hotSize: 0x50, patches: copyPatches},
		// The Pentium-tuned copy is eligible on a 486 when CPUID is present,
		// so its hard floor is the 486.
		{id: ModCopyPent, ref: 22, cat: CategoryCopy, minCPU: hardware.Tier486,
			hotSize: 0x60, patches: copyPatches},
	}

	// The always-resident support set. core_pktapi and core_tsrwrap own the
	// API, idle and uninstall entry points.
	coreExtra := []struct {
		id      ID
		hotSize uint16
		exports map[Entry]Export
	}{
		{CorePktAPI, 0x300, map[Entry]Export{
			EntryAPI:  {Offset: 0x00},
			EntryIdle: {Offset: 0x40},
		}},
		{CoreNICIRQ, 0x160, nil},
		{CoreHWSMC, 0x120, nil},
		{CorePCMISR, 0x90, nil},
		{CoreFlowRT, 0x140, nil},
		{CoreDirPIO, 0xE0, nil},
		{CorePktOps, 0x200, nil},
		{CorePktCopy, 0x110, nil},
		{CoreTSRCom, 0xA0, nil},
		{CoreTSRWrap, 0x80, map[Entry]Export{EntryUninstall: {Offset: 0x10}}},
		{CorePCIIO, 0xB0, nil},
		{CorePCIISR, 0x90, nil},
		{CoreLinkASM, 0x70, nil},
		{CoreHWPkt, 0x1A0, nil},
		{CoreHWCfg, 0xC0, nil},
		{CoreHWCoord, 0xD0, nil},
		{CoreHWInit, 0x100, nil},
		{CoreHWEEP, 0x90, nil},
		{CoreHWDMA, 0x120, nil},
		{CoreCacheOp, 0x80, nil},
		{CoreTSRCRT, 0x60, nil},
	}
	ref := uint8(23)
	for _, c := range coreExtra {
		specs = append(specs, synthSpec{
			id: c.id, ref: ref, cat: CategoryCore,
			caps: hardware.CapCore, hotSize: c.hotSize, exports: c.exports,
		})
		ref++
	}
	return specs
}

// SyntheticCatalog builds the full in-memory module catalog with
// deterministic placeholder code. Tests and the catalog generation tool
// both build from it, so fixtures on disk and fixtures in tests can never
// diverge.
func SyntheticCatalog() ([]*Descriptor, error) {
	specs := synthSpecs()
	descs := make([]*Descriptor, 0, len(specs))
	for i := range specs {
		s := &specs[i]
		d, err := buildSynthetic(s)
		if err != nil {
			return nil, fmt.Errorf("registry: synthesize %s: %w", s.id, err)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// NewSynthetic is SyntheticCatalog wrapped into a ready registry.
func NewSynthetic() (*Registry, error) {
	descs, err := SyntheticCatalog()
	if err != nil {
		return nil, err
	}
	return New(descs)
}

func buildSynthetic(s *synthSpec) (*Descriptor, error) {
	b := modbin.NewBuilder().CPU(s.minCPU).NIC(s.nic).Caps(s.caps)
	if s.format == modbin.VersionEnhanced {
		b.Enhanced()
	}

	// Deterministic filler: the module ref repeated, with a ret at the end
	// of the section.
	hot := make([]byte, s.hotSize)
	for i := range hot {
		hot[i] = 0x90
	}
	hot[0] = 0x50 | (s.ref & 0x07) // push reg, varies per module
	hot[len(hot)-1] = 0xC3
	b.Hot(hot)
	b.Cold([]byte{0xB8, uint8(s.ref), 0x00, 0xC3}) // setup stub, discarded

	if s.patches != nil {
		for _, p := range s.patches(s) {
			b.Patch(p)
		}
	}

	blob, err := b.Build()
	if err != nil {
		return nil, err
	}
	mod, err := modbin.ParseModule(blob)
	if err != nil {
		return nil, err
	}
	align := s.align
	if align == 0 {
		align = 1
	}
	return &Descriptor{
		ID:        s.id,
		Ref:       s.ref,
		Category:  s.cat,
		Caps:      s.caps,
		MinCPU:    s.minCPU,
		NIC:       s.nic,
		Alignment: align,
		Exports:   s.exports,
		Module:    mod,
	}, nil
}
