package hardware

import "fmt"

// CPUTier is the detected processor generation. Tiers are ordered: a module
// requiring Tier386 runs on any tier >= Tier386.
type CPUTier uint8

const (
	Tier8086 CPUTier = iota
	Tier286
	Tier386
	Tier486
	TierPentium
)

// String returns the conventional name of the tier.
func (t CPUTier) String() string {
	switch t {
	case Tier8086:
		return "8086"
	case Tier286:
		return "80286"
	case Tier386:
		return "80386"
	case Tier486:
		return "80486"
	case TierPentium:
		return "pentium"
	default:
		return fmt.Sprintf("cpu(%d)", uint8(t))
	}
}

// CPUFeature is a bitset of detected processor features. Features are
// orthogonal to the tier: CLFLUSH appears on some Pentium-class parts only.
type CPUFeature uint16

const (
	FeatureCPUID CPUFeature = 1 << iota
	FeatureCLFLUSH
	FeatureWBINVD
)

// Has reports whether all features in mask are present.
func (f CPUFeature) Has(mask CPUFeature) bool { return f&mask == mask }

// NICGeneration identifies the detected NIC family. Exactly one NIC module
// matches each generation.
type NICGeneration uint8

const (
	// NICAny is the registry wildcard for modules that work with any NIC.
	NICAny NICGeneration = iota
	// NICEtherLinkIII is the PIO-only ISA first generation (3C509B).
	NICEtherLinkIII
	// NICCorkscrew is the ISA bus-master generation (3C515).
	NICCorkscrew
	// NICVortex is the first PCI generation, PIO based (3C59x).
	NICVortex
	// NICBoomerang is the first PCI descriptor-ring generation (3C90x).
	NICBoomerang
	// NICCyclone is the second PCI descriptor-ring generation (3C905B).
	NICCyclone
	// NICTornado is the third PCI descriptor-ring generation (3C905C).
	NICTornado
)

var nicNames = map[NICGeneration]string{
	NICAny:          "any",
	NICEtherLinkIII: "3c509b",
	NICCorkscrew:    "3c515",
	NICVortex:       "vortex",
	NICBoomerang:    "boomerang",
	NICCyclone:      "cyclone",
	NICTornado:      "tornado",
}

func (g NICGeneration) String() string {
	if s, ok := nicNames[g]; ok {
		return s
	}
	return fmt.Sprintf("nic(%d)", uint8(g))
}

// DescriptorRing reports whether the generation transfers packets through
// PCI descriptor rings rather than PIO or single-shot bus-master DMA.
// Vortex is PCI but PIO based and is deliberately excluded.
func (g NICGeneration) DescriptorRing() bool {
	switch g {
	case NICBoomerang, NICCyclone, NICTornado:
		return true
	}
	return false
}

// CapFlags is the capability bitset shared between module metadata
// ("this module needs X") and platform detection ("this machine has X").
type CapFlags uint16

const (
	CapISADMA CapFlags = 1 << iota
	CapBusMasterDMA
	CapDescRing
	CapBounceBuffer
	CapPCIBus
	CapCacheSnoop
	CapWBINVD
	CapCLFLUSH
	CapVDS
	// CapCore marks the always-resident support modules.
	CapCore
)

// Has reports whether all capabilities in mask are set.
func (c CapFlags) Has(mask CapFlags) bool { return c&mask == mask }

// PlatformFlags describes chipset-level facts established by detection.
type PlatformFlags uint16

const (
	PlatformDMASafe PlatformFlags = 1 << iota
	PlatformPCIPresent
	PlatformISADMA
	PlatformVDSAvailable
	PlatformWriteBackCache
)

// Has reports whether all flags in mask are set.
func (p PlatformFlags) Has(mask PlatformFlags) bool { return p&mask == mask }

// Description is the full detection record driving module selection.
// It is immutable for the duration of an install attempt.
type Description struct {
	CPU         CPUTier
	CPUFeatures CPUFeature
	NIC         NICGeneration
	Platform    PlatformFlags

	// BusMasterRequested is the operator's request to enable bus mastering
	// on the Corkscrew generation; it is honored only when the chipset was
	// judged DMA safe.
	BusMasterRequested bool
	// BounceBuffersNeeded is set when DMA-reachable memory could not be
	// guaranteed and transfers must stage through a low bounce buffer.
	BounceBuffersNeeded bool
}

// RuntimeFlag is the flag word baked into the image by IMM16 flag patches.
type RuntimeFlag uint16

const (
	RuntimeBusMaster RuntimeFlag = 1 << iota
	RuntimeVDS
	RuntimeWriteBackCache
	RuntimeBounceBuffers
)

// Values holds the detection-derived scalars the patcher writes into patch
// sites. All fields are in host order; the patcher serializes little-endian.
type Values struct {
	IOBase     uint16
	IRQ        uint8
	DMAChannel uint8 // 0xFF means no ISA DMA channel assigned
	MAC        [6]byte
	NIC        NICGeneration
	CPU        CPUTier
	Flags      RuntimeFlag
	CacheLine  uint8
}

// NoDMAChannel is the DMAChannel sentinel for "none".
const NoDMAChannel = 0xFF

// ValuesFrom derives the patchable scalar set from a description and the
// probed per-NIC resources.
func ValuesFrom(desc Description, ioBase uint16, irq uint8, dma uint8, mac [6]byte, cacheLine uint8) Values {
	var fl RuntimeFlag
	if desc.BusMasterRequested && desc.Platform.Has(PlatformDMASafe) {
		fl |= RuntimeBusMaster
	}
	if desc.Platform.Has(PlatformVDSAvailable) {
		fl |= RuntimeVDS
	}
	if desc.Platform.Has(PlatformWriteBackCache) {
		fl |= RuntimeWriteBackCache
	}
	if desc.BounceBuffersNeeded {
		fl |= RuntimeBounceBuffers
	}
	return Values{
		IOBase:     ioBase,
		IRQ:        irq,
		DMAChannel: dma,
		MAC:        mac,
		NIC:        desc.NIC,
		CPU:        desc.CPU,
		Flags:      fl,
		CacheLine:  cacheLine,
	}
}
