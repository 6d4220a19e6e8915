package hardware

import (
	"fmt"
	"strings"
)

// ParseCPUTier converts a catalog spelling ("8086", "80386", "pentium")
// into a tier.
func ParseCPUTier(s string) (CPUTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "8086", "8088":
		return Tier8086, nil
	case "286", "80286":
		return Tier286, nil
	case "386", "80386":
		return Tier386, nil
	case "486", "80486":
		return Tier486, nil
	case "pentium", "586":
		return TierPentium, nil
	}
	return 0, fmt.Errorf("unknown cpu tier %q", s)
}

// ParseNICGeneration converts a catalog spelling into a generation tag.
func ParseNICGeneration(s string) (NICGeneration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for g, name := range nicNames {
		if s == name {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown nic generation %q", s)
}

// ParseCapFlags folds a list of capability names into a bitset.
func ParseCapFlags(names []string) (CapFlags, error) {
	var flags CapFlags
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "isa_dma":
			flags |= CapISADMA
		case "busmaster_dma":
			flags |= CapBusMasterDMA
		case "desc_ring":
			flags |= CapDescRing
		case "bounce_buffer":
			flags |= CapBounceBuffer
		case "pci_bus":
			flags |= CapPCIBus
		case "cache_snoop":
			flags |= CapCacheSnoop
		case "wbinvd":
			flags |= CapWBINVD
		case "clflush":
			flags |= CapCLFLUSH
		case "vds":
			flags |= CapVDS
		case "core":
			flags |= CapCore
		default:
			return 0, fmt.Errorf("unknown capability %q", n)
		}
	}
	return flags, nil
}
