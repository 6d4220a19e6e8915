package selection

import (
	"go.uber.org/zap"

	"github.com/jfabienke/3com-packet-driver-sub011/errors"
	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/registry"
)

// Engine selects modules from a registry.
type Engine struct {
	reg *registry.Registry
}

// NewEngine creates a selection engine over reg.
func NewEngine(reg *registry.Registry) *Engine {
	return &Engine{reg: reg}
}

// Select runs all selection sub-steps for the described hardware and
// returns the validated selection.
func (e *Engine) Select(desc hardware.Description) (*Selection, error) {
	sel := newSelection(e.reg)

	if err := e.selectCore(sel); err != nil {
		return nil, err
	}
	if err := e.selectNIC(sel, desc); err != nil {
		return nil, err
	}
	if err := e.selectDMA(sel, desc); err != nil {
		return nil, err
	}
	if err := e.selectCache(sel, desc); err != nil {
		return nil, err
	}
	if err := e.selectCopy(sel, desc); err != nil {
		return nil, err
	}

	Logger().Info("module selection complete",
		zap.Int("modules", sel.Len()),
		zap.Uint32("total_hot_bytes", sel.TotalHotSize))

	if err := Validate(sel, desc); err != nil {
		return nil, err
	}
	return sel, nil
}

// selectCore adds the modules that are resident on every configuration.
func (e *Engine) selectCore(sel *Selection) error {
	for _, id := range registry.CoreModules {
		if err := sel.add(id); err != nil {
			return err
		}
	}
	return nil
}

var nicModules = map[hardware.NICGeneration]registry.ID{
	hardware.NICEtherLinkIII: registry.Mod3C509B,
	hardware.NICCorkscrew:    registry.Mod3C515,
	hardware.NICVortex:       registry.ModVortex,
	hardware.NICBoomerang:    registry.ModBoomerang,
	hardware.NICCyclone:      registry.ModCyclone,
	hardware.NICTornado:      registry.ModTornado,
}

// selectNIC chooses exactly one NIC handler by generation match.
func (e *Engine) selectNIC(sel *Selection, desc hardware.Description) error {
	id, ok := nicModules[desc.NIC]
	if !ok {
		return errors.UnsupportedHardware(errors.StageSelect,
			"no module for nic generation %s", desc.NIC)
	}
	return sel.add(id)
}

// selectDMA picks the transfer strategy in strict precedence order; the
// first matching rule wins and all later rules are skipped.
func (e *Engine) selectDMA(sel *Selection, desc hardware.Description) error {
	addBounce := func() error {
		if desc.BounceBuffersNeeded {
			return sel.add(registry.ModDMABounce)
		}
		return nil
	}

	// PCI descriptor-ring generations drive the ring engine directly.
	if desc.NIC.DescriptorRing() {
		if err := sel.add(registry.ModDMADescRing); err != nil {
			return err
		}
		return addBounce()
	}

	// Corkscrew bus mastering, only when requested and the chipset was
	// judged safe. The cache-snoop module rides along on PCI systems on
	// this path only; the descriptor-ring path above never adds it.
	if sel.Contains(registry.Mod3C515) &&
		desc.BusMasterRequested &&
		desc.Platform.Has(hardware.PlatformDMASafe) {
		if err := sel.add(registry.ModDMABusMaster); err != nil {
			return err
		}
		if err := addBounce(); err != nil {
			return err
		}
		if desc.Platform.Has(hardware.PlatformPCIPresent) {
			return sel.add(registry.ModCacheSnoop)
		}
		return nil
	}

	// Third-party ISA DMA.
	if desc.Platform.Has(hardware.PlatformISADMA) {
		if err := sel.add(registry.ModDMAISA); err != nil {
			return err
		}
		return addBounce()
	}

	// Programmed I/O always works.
	return sel.add(registry.ModPIO)
}

// selectCache chooses the coherency strategy, best first.
func (e *Engine) selectCache(sel *Selection, desc hardware.Description) error {
	switch {
	case desc.CPUFeatures.Has(hardware.FeatureCLFLUSH):
		return sel.add(registry.ModCacheCLFLUSH)
	case desc.CPU >= hardware.Tier386:
		return sel.add(registry.ModCacheWBINVD)
	default:
		return sel.add(registry.ModCacheNone)
	}
}

// selectCopy chooses the highest copy routine the CPU satisfies.
func (e *Engine) selectCopy(sel *Selection, desc hardware.Description) error {
	switch {
	case desc.CPU >= hardware.TierPentium || desc.CPUFeatures.Has(hardware.FeatureCPUID):
		return sel.add(registry.ModCopyPent)
	case desc.CPU >= hardware.Tier386:
		return sel.add(registry.ModCopy386)
	case desc.CPU >= hardware.Tier286:
		return sel.add(registry.ModCopy286)
	default:
		return sel.add(registry.ModCopy8086)
	}
}

// Validate checks a finished selection against the hardware description.
// It has no side effects and may be called repeatedly.
func Validate(sel *Selection, desc hardware.Description) error {
	var filled [6]bool
	for _, id := range sel.Modules() {
		d := sel.Registry().Lookup(id)
		if d.MinCPU > desc.CPU {
			return errors.ValidationFailed(string(id),
				"requires cpu %s, detected %s", d.MinCPU, desc.CPU)
		}
		filled[d.Category] = true
	}
	for _, c := range []registry.Category{
		registry.CategoryNIC, registry.CategoryDMA,
		registry.CategoryCache, registry.CategoryCopy,
	} {
		if !filled[c] {
			return errors.ValidationFailed("", "no %s module selected", c)
		}
	}
	return nil
}
