package registry

import (
	"fmt"

	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin"
)

// ID is a module's catalog identifier.
type ID string

// Category groups modules by the role they fill in the resident driver.
// Validation requires the NIC, DMA, Cache and Copy categories to be filled
// exactly once each; Core modules are always included.
type Category uint8

const (
	CategoryCore Category = iota
	CategoryNIC
	CategoryDMA
	CategoryCache
	CategoryCopy
	// CategorySupport modules (bounce buffers, cache snooping) ride along
	// with a strategy choice and are exempt from the one-per-category rule.
	CategorySupport
)

var categoryNames = map[Category]string{
	CategoryCore:    "core",
	CategoryNIC:     "nic",
	CategoryDMA:     "dma",
	CategoryCache:   "cache",
	CategoryCopy:    "copy",
	CategorySupport: "support",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// ParseCategory converts a catalog spelling into a Category.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if s == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// Entry names an image entry point a module may export.
type Entry string

const (
	EntryAPI       Entry = "api"       // driver-API software interrupt handler
	EntryIdle      Entry = "idle"      // idle-notification handler
	EntryIRQ       Entry = "irq"       // hardware IRQ handler
	EntryData      Entry = "data"      // shared data section
	EntryStack     Entry = "stack"     // private driver stack
	EntryUninstall Entry = "uninstall" // uninstall handler
)

// Export is an entry point a module provides. Offset is relative to the
// module's hot-section start; Size is meaningful for data and stack only.
type Export struct {
	Offset uint16
	Size   uint16
}

// Descriptor is one registry entry. Immutable after registry initialization.
type Descriptor struct {
	ID       ID
	Ref      uint8 // wire identifier used by relocation targets
	Category Category
	Caps     hardware.CapFlags
	MinCPU   hardware.CPUTier
	NIC      hardware.NICGeneration // NICAny unless Category == CategoryNIC
	// Alignment is the placement alignment in the image (1 or 16). The
	// paragraph value mirrors the on-disk section alignment rule.
	Alignment uint16
	Exports   map[Entry]Export
	Module    *modbin.Module
	HotSize   uint16
}

func (d *Descriptor) validate() error {
	if d.ID == "" {
		return fmt.Errorf("descriptor without id")
	}
	if d.Module == nil {
		return fmt.Errorf("module %s: no blob bound", d.ID)
	}
	if d.Alignment != 1 && d.Alignment != 16 {
		return fmt.Errorf("module %s: unsupported alignment %d", d.ID, d.Alignment)
	}
	if d.Category == CategoryNIC && d.NIC == hardware.NICAny {
		return fmt.Errorf("module %s: nic module without generation tag", d.ID)
	}
	hot := d.Module.Header.HotSize()
	for name, exp := range d.Exports {
		end := int(exp.Offset) + int(exp.Size)
		if end > int(hot) {
			return fmt.Errorf("module %s: export %s [0x%04x,0x%04x) outside hot section (%d bytes)",
				d.ID, name, exp.Offset, end, hot)
		}
	}
	return nil
}
