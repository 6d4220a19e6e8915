package image

import (
	"go.uber.org/zap"

	"github.com/jfabienke/3com-packet-driver-sub011/errors"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin"
	"github.com/jfabienke/3com-packet-driver-sub011/registry"
)

// ApplyRelocations rewrites cross-module references now that every module's
// destination offset is known: near rel16 call/jump displacements, far
// segment:offset pointers, and bare segment or offset words. All rewritten
// values are image-relative; the resident loader rebases by its own load
// segment. Runs strictly after ApplyPatches.
//
// Returns the number of relocation entries processed. A target outside the
// image, an unknown target module, or a misaligned segment target aborts the
// build.
func ApplyRelocations(l *Layout) (int, error) {
	if l.stage != stagePatched {
		return 0, errors.New(errors.StageReloc, errors.KindInternal).
			Detail("relocation pass on %s image", stageNames[l.stage]).Build()
	}

	count := 0
	for _, p := range l.placements {
		d := l.reg.Lookup(p.ID)
		for i := range d.Module.Patches {
			e := &d.Module.Patches[i]
			if !e.Kind.Relocation() {
				continue
			}
			count++
			site := l.siteFor(p, &d.Module.Header, e.Offset)
			if err := relocateOne(l, p.ID, site, e); err != nil {
				return 0, err
			}
		}
	}

	l.stage = stageRelocated
	Logger().Info("relocations applied", zap.Int("sites", count))
	return count, nil
}

func relocateOne(l *Layout, id registry.ID, site int, e *modbin.PatchEntry) error {
	fail := func(detail string, args ...any) error {
		return errors.New(errors.StageReloc, errors.KindRelocationFailed).
			Module(string(id)).Offset(site).Detail(detail, args...).Build()
	}

	ref, targetOff := e.RelocTarget()
	td, ok := l.reg.LookupRef(ref)
	if !ok {
		return fail("relocation names unknown module ref %d", ref)
	}
	tp, ok := l.Placement(td.ID)
	if !ok {
		return fail("relocation target %s not in image", td.ID)
	}
	if targetOff >= tp.HotSize {
		return fail("target offset 0x%04x outside %s hot section (%d bytes)",
			targetOff, td.ID, tp.HotSize)
	}
	abs := tp.Dst + targetOff

	var bytes []byte
	switch e.Kind {
	case modbin.PatchRelocNear:
		// rel16 is relative to the byte after the displacement.
		disp := int(abs) - (site + 2)
		if disp < -0x8000 || disp > 0x7FFF {
			return fail("near displacement %d out of rel16 range", disp)
		}
		bytes = le16(uint16(int16(disp)))

	case modbin.PatchRelocOffset:
		bytes = le16(abs)

	case modbin.PatchRelocSegment:
		if abs%16 != 0 {
			return fail("segment target 0x%04x not paragraph aligned", abs)
		}
		bytes = le16(abs >> 4)

	case modbin.PatchRelocSegOfs:
		// Far pointer: offset word first, then the segment word.
		bytes = append(le16(abs&0x000F), le16(abs>>4)...)

	default:
		return fail("kind %s is not a relocation", e.Kind)
	}

	return l.writeSite(errors.StageReloc, errors.KindRelocationFailed, id, site, bytes)
}
