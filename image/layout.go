package image

import (
	"go.uber.org/zap"

	"github.com/jfabienke/3com-packet-driver-sub011/errors"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin"
	"github.com/jfabienke/3com-packet-driver-sub011/registry"
	"github.com/jfabienke/3com-packet-driver-sub011/selection"
)

// DefaultInt is the conventional packet-driver API interrupt.
const DefaultInt = 0x60

// Config carries the install-time parameters written into the image header.
type Config struct {
	// IRQ is the hardware IRQ line the NIC was probed on.
	IRQ uint8
	// Int is the software interrupt for the driver API. Zero means
	// DefaultInt.
	Int uint8
}

// Placement records where one module's hot section landed in the image.
type Placement struct {
	ID registry.ID
	// Dst is the image offset of the first hot byte.
	Dst uint16
	// HotSize is the number of hot bytes copied.
	HotSize uint16
	// Padding is the number of alignment bytes inserted before Dst.
	Padding uint16
}

type stage uint8

const (
	stageBuilt stage = iota
	stagePatched
	stageRelocated
	stageSealed
)

var stageNames = map[stage]string{
	stageBuilt:     "built",
	stagePatched:   "patched",
	stageRelocated: "relocated",
	stageSealed:    "sealed",
}

// Layout is the build pipeline's working state: module placements, the
// mutable image buffer, and the stage marker enforcing build → patch →
// relocate → finalize ordering. Created by Build; the patcher and relocator
// mutate the buffer through bounds-checked writes only.
type Layout struct {
	reg        *registry.Registry
	placements []Placement
	byID       map[registry.ID]int
	buf        []byte
	header     modbin.ImageHeader
	stage      stage
	sealed     []byte
}

// Build computes the image layout for a validated selection and copies every
// selected module's hot section into a fresh buffer, in selection order. The
// cold sections are never read. The completed image header lands at offset 0.
func Build(sel *selection.Selection, cfg Config) (*Layout, error) {
	reg := sel.Registry()
	l := &Layout{
		reg:  reg,
		byID: make(map[registry.ID]int, sel.Len()),
	}

	// First pass: destination offsets. Paragraph-aligned modules get
	// explicit padding, counted in the image size.
	off := uint32(modbin.ImageHeaderSize)
	for _, id := range sel.Modules() {
		d := reg.Lookup(id)
		var pad uint32
		if a := uint32(d.Alignment); a > 1 {
			if rem := off % a; rem != 0 {
				pad = a - rem
			}
		}
		off += pad
		p := Placement{ID: id, Dst: uint16(off), HotSize: d.HotSize, Padding: uint16(pad)}
		off += uint32(d.HotSize)
		if off > 0xFFFF {
			return nil, errors.New(errors.StageBuild, errors.KindAllocationFailed).
				Module(string(id)).
				Detail("image exceeds 64KB at %d bytes", off).Build()
		}
		l.byID[id] = len(l.placements)
		l.placements = append(l.placements, p)
	}
	total := uint16(off)

	// Second pass: copy hot bytes. Padding stays zero.
	l.buf = make([]byte, total)
	for _, p := range l.placements {
		d := reg.Lookup(p.ID)
		copy(l.buf[p.Dst:], d.Module.Hot())
	}

	hdr, err := l.resolveEntries(cfg, total)
	if err != nil {
		return nil, err
	}
	l.header = *hdr
	copy(l.buf, hdr.Encode())

	Logger().Info("image laid out",
		zap.Int("modules", sel.Len()),
		zap.Uint16("image_size", total),
		zap.Uint16("padding", l.PaddingTotal()))
	return l, nil
}

// resolveEntries converts each module-relative entry-point export into an
// image-relative offset. The first exporting module in selection order owns
// an entry point.
func (l *Layout) resolveEntries(cfg Config, total uint16) (*modbin.ImageHeader, error) {
	offs := make(map[registry.Entry]uint16)
	sizes := make(map[registry.Entry]uint16)
	for _, p := range l.placements {
		d := l.reg.Lookup(p.ID)
		for name, exp := range d.Exports {
			if _, claimed := offs[name]; claimed {
				continue
			}
			offs[name] = p.Dst + exp.Offset
			sizes[name] = exp.Size
		}
	}
	for _, required := range []registry.Entry{
		registry.EntryAPI, registry.EntryIRQ,
		registry.EntryData, registry.EntryStack, registry.EntryUninstall,
	} {
		if _, ok := offs[required]; !ok {
			return nil, errors.New(errors.StageBuild, errors.KindValidationFailed).
				Detail("no selected module exports the %s entry point", required).Build()
		}
	}

	intNo := cfg.Int
	if intNo == 0 {
		intNo = DefaultInt
	}
	return &modbin.ImageHeader{
		Version:   modbin.ImageVersion,
		ImageSize: total,
		API:       offs[registry.EntryAPI],
		Idle:      offs[registry.EntryIdle], // zero when absent: no idle hook
		IRQ:       offs[registry.EntryIRQ],
		Data:      offs[registry.EntryData],
		DataSize:  sizes[registry.EntryData],
		Stack:     offs[registry.EntryStack],
		StackSize: sizes[registry.EntryStack],
		Uninstall: offs[registry.EntryUninstall],
		IRQNumber: cfg.IRQ,
		IntNumber: intNo,
	}, nil
}

// Header returns the image header as written at offset 0.
func (l *Layout) Header() modbin.ImageHeader {
	return l.header
}

// ImageSize returns the total image size including header and padding.
func (l *Layout) ImageSize() uint16 {
	return l.header.ImageSize
}

// Placements returns the per-module placements in image order.
func (l *Layout) Placements() []Placement {
	return l.placements
}

// Placement returns the placement for id and whether id is in the image.
func (l *Layout) Placement(id registry.ID) (Placement, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Placement{}, false
	}
	return l.placements[i], true
}

// PaddingTotal returns the alignment bytes inserted across all placements.
func (l *Layout) PaddingTotal() uint16 {
	var n uint16
	for _, p := range l.placements {
		n += p.Padding
	}
	return n
}

// Bytes exposes the working buffer. It must not be retained across pipeline
// stages; installers consume the sealed copy from Finalize instead.
func (l *Layout) Bytes() []byte {
	return l.buf
}

// siteFor converts a module-relative patch offset into an image offset.
func (l *Layout) siteFor(p Placement, hdr *modbin.ModuleHeader, patchOff uint16) int {
	return int(p.Dst) + int(patchOff) - int(hdr.HotStart)
}

// writeSite overwrites exactly len(b) bytes at an image offset, rejecting
// writes that would touch the header or run past the buffer.
func (l *Layout) writeSite(st errors.Stage, kind errors.Kind, id registry.ID, site int, b []byte) error {
	if site < modbin.ImageHeaderSize || site+len(b) > len(l.buf) {
		return errors.New(st, kind).
			Module(string(id)).Offset(site).
			Detail("write of %d bytes outside image body", len(b)).Build()
	}
	copy(l.buf[site:], b)
	return nil
}
