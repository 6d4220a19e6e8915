package image

import (
	"go.uber.org/zap"

	"github.com/jfabienke/3com-packet-driver-sub011/errors"
	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin"
	"github.com/jfabienke/3com-packet-driver-sub011/registry"
)

// ApplyPatches walks every selected module's patch table in ascending offset
// order and rewrites the copied hot bytes in place: scalar sites get the
// matching hardware value, variant sites get exactly one candidate sequence
// chosen by CPU tier and DMA-policy safety flags, NOP sites are filled with
// 0x90. Relocation entries are left for ApplyRelocations.
//
// The returned count is the number of patch-table entries visited across all
// modules, relocation entries included. Any failure aborts the build; a
// partially patched image is never handed on.
func ApplyPatches(l *Layout, vals hardware.Values) (int, error) {
	if l.stage != stageBuilt {
		return 0, errors.New(errors.StagePatch, errors.KindInternal).
			Detail("patch pass on %s image", stageNames[l.stage]).Build()
	}

	count := 0
	for _, p := range l.placements {
		d := l.reg.Lookup(p.ID)
		for i := range d.Module.Patches {
			e := &d.Module.Patches[i]
			count++
			if e.Kind.Relocation() {
				continue
			}
			site := l.siteFor(p, &d.Module.Header, e.Offset)
			if err := applyOne(l, p.ID, site, e, vals); err != nil {
				return 0, err
			}
		}
	}

	l.stage = stagePatched
	Logger().Info("patches applied",
		zap.Int("sites", count),
		zap.Uint8("cpu", uint8(vals.CPU)),
		zap.Uint16("flags", uint16(vals.Flags)))
	return count, nil
}

func applyOne(l *Layout, id registry.ID, site int, e *modbin.PatchEntry, vals hardware.Values) error {
	var bytes []byte
	switch {
	case e.Kind == modbin.PatchNOP:
		bytes = nopFill(int(e.Size))
	case e.Kind.Scalar():
		b, err := scalarBytes(id, site, e, vals)
		if err != nil {
			return err
		}
		bytes = b
	default:
		slot, err := chooseVariant(id, site, e, vals)
		if err != nil {
			return err
		}
		bytes = e.Variants[slot][:e.Size]
	}
	return l.writeSite(errors.StagePatch, errors.KindPatchFailed, id, site, bytes)
}

// scalarBytes encodes the hardware field named by the entry's tag byte,
// little-endian, at the declared width.
func scalarBytes(id registry.ID, site int, e *modbin.PatchEntry, vals hardware.Values) ([]byte, error) {
	fail := func(detail string, args ...any) error {
		return errors.New(errors.StagePatch, errors.KindPatchFailed).
			Module(string(id)).Offset(site).Detail(detail, args...).Build()
	}

	switch e.Kind {
	case modbin.PatchIO:
		if e.Size < 2 {
			return nil, fail("io patch narrower than 2 bytes")
		}
		return le16(vals.IOBase), nil

	case modbin.PatchImm16:
		if e.Size < 2 {
			return nil, fail("imm16 patch narrower than 2 bytes")
		}
		switch e.Tag() {
		case modbin.TagImm16IOBase:
			return le16(vals.IOBase), nil
		case modbin.TagImm16NICType:
			return le16(uint16(vals.NIC)), nil
		case modbin.TagImm16CPUTier:
			return le16(uint16(vals.CPU)), nil
		case modbin.TagImm16Flags:
			return le16(uint16(vals.Flags)), nil
		}
		return nil, fail("unknown imm16 tag 0x%02x", e.Tag())

	case modbin.PatchImm8:
		switch e.Tag() {
		case modbin.TagImm8IRQ:
			return []byte{vals.IRQ}, nil
		case modbin.TagImm8DMA:
			return []byte{vals.DMAChannel}, nil
		case modbin.TagImm8CacheLine:
			return []byte{vals.CacheLine}, nil
		}
		return nil, fail("unknown imm8 tag 0x%02x", e.Tag())

	case modbin.PatchCopy:
		if e.Tag() != modbin.TagCopyMAC {
			return nil, fail("unknown copy tag 0x%02x", e.Tag())
		}
		if e.Size != uint8(len(vals.MAC)) {
			return nil, fail("mac patch size %d, want %d", e.Size, len(vals.MAC))
		}
		return vals.MAC[:], nil
	}
	return nil, fail("kind %s is not a scalar patch", e.Kind)
}

// chooseVariant picks exactly one candidate slot for a code-variant entry.
// Safety slots take precedence when their policy condition holds; otherwise
// the highest populated CPU slot at or below the detected tier wins. Slot 0
// is the 8086 baseline.
func chooseVariant(id registry.ID, site int, e *modbin.PatchEntry, vals hardware.Values) (int, error) {
	busMaster := vals.Flags&hardware.RuntimeBusMaster != 0
	bounce := vals.Flags&hardware.RuntimeBounceBuffers != 0

	switch {
	case e.Populated(modbin.SlotBusMaster) && busMaster:
		return modbin.SlotBusMaster, nil
	case e.Populated(modbin.SlotBounceCopy) && bounce:
		return modbin.SlotBounceCopy, nil
	case e.Populated(modbin.SlotISADMACheck) && !busMaster:
		return modbin.SlotISADMACheck, nil
	}

	top := int(vals.CPU)
	if top > modbin.LegacyVariants-1 {
		top = modbin.LegacyVariants - 1
	}
	for i := top; i >= 0; i-- {
		if e.Populated(i) {
			return i, nil
		}
	}
	return 0, errors.New(errors.StagePatch, errors.KindPatchFailed).
		Module(string(id)).Offset(site).
		Detail("no eligible variant for %s site on cpu %s", e.Kind, vals.CPU).Build()
}

func le16(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func nopFill(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0x90
	}
	return b
}
