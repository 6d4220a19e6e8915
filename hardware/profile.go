package hardware

import (
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the on-disk spelling of a detection result. The detection
// collaborator writes one of these; the CLI reads it instead of probing
// hardware itself.
type Profile struct {
	CPU      string   `yaml:"cpu"`
	Features []string `yaml:"features,omitempty"`
	NIC      string   `yaml:"nic"`
	Platform []string `yaml:"platform,omitempty"`

	BusMaster     bool `yaml:"bus_master,omitempty"`
	BounceBuffers bool `yaml:"bounce_buffers,omitempty"`

	IOBase     uint16 `yaml:"io_base"`
	IRQ        uint8  `yaml:"irq"`
	DMAChannel *uint8 `yaml:"dma_channel,omitempty"` // absent means none
	MAC        string `yaml:"mac"`
	CacheLine  uint8  `yaml:"cache_line,omitempty"`
}

// LoadProfile reads and parses a profile file.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hardware: read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("hardware: parse profile: %w", err)
	}
	return &p, nil
}

// Description converts the profile into the selection engine's input.
func (p *Profile) Description() (Description, error) {
	var d Description
	var err error
	if d.CPU, err = ParseCPUTier(p.CPU); err != nil {
		return d, fmt.Errorf("hardware: %w", err)
	}
	if d.CPUFeatures, err = parseFeatures(p.Features); err != nil {
		return d, fmt.Errorf("hardware: %w", err)
	}
	if d.NIC, err = ParseNICGeneration(p.NIC); err != nil {
		return d, fmt.Errorf("hardware: %w", err)
	}
	if d.Platform, err = parsePlatform(p.Platform); err != nil {
		return d, fmt.Errorf("hardware: %w", err)
	}
	d.BusMasterRequested = p.BusMaster
	d.BounceBuffersNeeded = p.BounceBuffers
	return d, nil
}

// Values converts the profile into the patcher's scalar inputs.
func (p *Profile) Values() (Values, error) {
	desc, err := p.Description()
	if err != nil {
		return Values{}, err
	}
	var mac [6]byte
	if p.MAC != "" {
		hw, err := net.ParseMAC(p.MAC)
		if err != nil || len(hw) != 6 {
			return Values{}, fmt.Errorf("hardware: bad mac %q", p.MAC)
		}
		copy(mac[:], hw)
	}
	dma := uint8(NoDMAChannel)
	if p.DMAChannel != nil {
		dma = *p.DMAChannel
	}
	cacheLine := p.CacheLine
	if cacheLine == 0 {
		cacheLine = 16
	}
	return ValuesFrom(desc, p.IOBase, p.IRQ, dma, mac, cacheLine), nil
}

func parseFeatures(names []string) (CPUFeature, error) {
	var f CPUFeature
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "cpuid":
			f |= FeatureCPUID
		case "clflush":
			f |= FeatureCLFLUSH
		case "wbinvd":
			f |= FeatureWBINVD
		default:
			return 0, fmt.Errorf("unknown cpu feature %q", n)
		}
	}
	return f, nil
}

func parsePlatform(names []string) (PlatformFlags, error) {
	var f PlatformFlags
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "dma_safe":
			f |= PlatformDMASafe
		case "pci":
			f |= PlatformPCIPresent
		case "isa_dma":
			f |= PlatformISADMA
		case "vds":
			f |= PlatformVDSAvailable
		case "writeback_cache":
			f |= PlatformWriteBackCache
		default:
			return 0, fmt.Errorf("unknown platform flag %q", n)
		}
	}
	return f, nil
}
