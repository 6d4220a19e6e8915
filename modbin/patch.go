package modbin

import (
	"fmt"

	"github.com/jfabienke/3com-packet-driver-sub011/modbin/internal/binary"
)

// PatchKind identifies what a patch site needs baked into it.
type PatchKind uint8

const (
	// PatchCopy copies bytes from the hardware values (tag selects field).
	PatchCopy PatchKind = 1
	// PatchIO writes the 16-bit I/O base address.
	PatchIO PatchKind = 2
	// PatchChecksum selects a CPU-tuned checksum inner loop.
	PatchChecksum PatchKind = 3
	// PatchISR selects a CPU-tuned interrupt-service prologue.
	PatchISR PatchKind = 4
	// PatchBranch selects a CPU-tuned instruction sequence.
	PatchBranch PatchKind = 5
	// PatchDMABoundary selects the 64KB ISA DMA boundary check sequence.
	PatchDMABoundary PatchKind = 6
	// PatchCachePre selects the pre-DMA cache operation.
	PatchCachePre PatchKind = 7
	// PatchCachePost selects the post-DMA cache operation.
	PatchCachePost PatchKind = 8
	// PatchBounceCopy selects the bounce-buffer staging copy.
	PatchBounceCopy PatchKind = 9
	// PatchEndianSwap selects the byte-swap sequence.
	PatchEndianSwap PatchKind = 10
	// PatchImm16 writes a 16-bit immediate (tag selects field).
	PatchImm16 PatchKind = 11
	// PatchImm8 writes an 8-bit immediate (tag selects field).
	PatchImm8 PatchKind = 12
	// PatchRelocNear is a near relative call/jump target, handled by the
	// relocator rather than the patcher.
	PatchRelocNear PatchKind = 13
	// PatchNOP disables the site by filling it with NOP bytes.
	PatchNOP PatchKind = 14
	// PatchRelocSegOfs is a segment:offset far pointer relocation.
	PatchRelocSegOfs PatchKind = 15
	// PatchRelocSegment is a segment-word-only relocation.
	PatchRelocSegment PatchKind = 16
	// PatchRelocOffset is an offset-word-only relocation.
	PatchRelocOffset PatchKind = 17
)

var patchKindNames = map[PatchKind]string{
	PatchCopy:         "copy",
	PatchIO:           "io",
	PatchChecksum:     "checksum",
	PatchISR:          "isr",
	PatchBranch:       "branch",
	PatchDMABoundary:  "dma-boundary",
	PatchCachePre:     "cache-pre",
	PatchCachePost:    "cache-post",
	PatchBounceCopy:   "bounce-copy",
	PatchEndianSwap:   "endian-swap",
	PatchImm16:        "imm16",
	PatchImm8:         "imm8",
	PatchRelocNear:    "reloc-near",
	PatchNOP:          "nop",
	PatchRelocSegOfs:  "reloc-segofs",
	PatchRelocSegment: "reloc-segment",
	PatchRelocOffset:  "reloc-offset",
}

func (k PatchKind) String() string {
	if s, ok := patchKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("patch(%d)", uint8(k))
}

// Relocation reports whether the kind is processed by the relocator
// instead of the patcher.
func (k PatchKind) Relocation() bool {
	switch k {
	case PatchRelocNear, PatchRelocSegOfs, PatchRelocSegment, PatchRelocOffset:
		return true
	}
	return false
}

// Scalar reports whether the kind bakes in a hardware scalar via the tag
// convention rather than selecting a code variant.
func (k PatchKind) Scalar() bool {
	switch k {
	case PatchCopy, PatchIO, PatchImm16, PatchImm8:
		return true
	}
	return false
}

// Tag bytes for scalar patch kinds. The tag lives in variant slot 0 byte 0.
const (
	TagImm8IRQ       = 0x01
	TagImm8DMA       = 0x02
	TagImm8CacheLine = 0x03

	TagImm16IOBase  = 0x01
	TagImm16NICType = 0x02
	TagImm16CPUTier = 0x03
	TagImm16Flags   = 0x04

	TagCopyMAC = 0x01
)

// SafetyFlags gate the enhanced-format safety variant slots.
type SafetyFlags uint8

const (
	// SafetyISADMACheck: slot 5 holds the ISA DMA boundary-check variant,
	// eligible only while bus mastering is not in effect.
	SafetyISADMACheck SafetyFlags = 1 << iota
	// SafetyBounceCopy: slot 6 holds the bounce-buffer variant, eligible
	// only when bounce buffers were selected.
	SafetyBounceCopy
	// SafetyBusMaster: slot 7 holds the bus-master variant, eligible only
	// while bus mastering is in effect.
	SafetyBusMaster
)

// Has reports whether all flags in mask are set.
func (f SafetyFlags) Has(mask SafetyFlags) bool { return f&mask == mask }

// VariantSize is the fixed size of one candidate byte sequence.
const VariantSize = 5

// Variant slot counts per format version.
const (
	LegacyVariants   = 5
	EnhancedVariants = 8
)

// Indices of the enhanced safety slots.
const (
	SlotISADMACheck = 5
	SlotBounceCopy  = 6
	SlotBusMaster   = 7
)

const (
	legacyEntrySize   = 4 + LegacyVariants*VariantSize   // 29
	enhancedEntrySize = 6 + EnhancedVariants*VariantSize // 46
)

// PatchEntry is one patch-table entry. Offset is relative to the module
// start; Size is the declared patch-site size (the legacy format reserves a
// fixed 5-byte slot, smaller writes leave the trailing bytes untouched).
type PatchEntry struct {
	Offset   uint16
	Kind     PatchKind
	Size     uint8
	Safety   SafetyFlags // enhanced format only
	Variants [EnhancedVariants][VariantSize]byte
	Enhanced bool
}

// VariantCount returns the number of wire slots for this entry's format.
func (e *PatchEntry) VariantCount() int {
	if e.Enhanced {
		return EnhancedVariants
	}
	return LegacyVariants
}

// Populated reports whether variant slot i carries a candidate. Slot 0 is
// always considered populated: it is the baseline 8086 sequence for variant
// kinds and the tag slot for scalar kinds. Safety slots are populated only
// when their safety flag is declared.
func (e *PatchEntry) Populated(i int) bool {
	if i == 0 {
		return true
	}
	switch i {
	case SlotISADMACheck:
		return e.Enhanced && e.Safety.Has(SafetyISADMACheck)
	case SlotBounceCopy:
		return e.Enhanced && e.Safety.Has(SafetyBounceCopy)
	case SlotBusMaster:
		return e.Enhanced && e.Safety.Has(SafetyBusMaster)
	}
	if i >= e.VariantCount() {
		return false
	}
	for _, b := range e.Variants[i] {
		if b != 0 {
			return true
		}
	}
	return false
}

// Tag returns the scalar tag byte (slot 0 byte 0).
func (e *PatchEntry) Tag() byte {
	return e.Variants[0][0]
}

// RelocTarget decodes the relocation target packed into slot 0:
// target module ref (1 byte) followed by the target offset (2 bytes LE,
// relative to the target module's hot-section start).
func (e *PatchEntry) RelocTarget() (moduleID uint8, offset uint16) {
	return e.Variants[0][0], uint16(e.Variants[0][1]) | uint16(e.Variants[0][2])<<8
}

// SetRelocTarget packs a relocation target into slot 0.
func (e *PatchEntry) SetRelocTarget(moduleID uint8, offset uint16) {
	e.Variants[0][0] = moduleID
	e.Variants[0][1] = byte(offset)
	e.Variants[0][2] = byte(offset >> 8)
}

func (e *PatchEntry) encode(w *binary.Writer) {
	w.WriteU16(e.Offset)
	w.Byte(uint8(e.Kind))
	w.Byte(e.Size)
	if e.Enhanced {
		w.Byte(uint8(e.Safety))
		w.Byte(0) // reserved
	}
	for i := 0; i < e.VariantCount(); i++ {
		w.WriteBytes(e.Variants[i][:])
	}
}

func decodePatchEntry(r *binary.Reader, enhanced bool) (PatchEntry, error) {
	var e PatchEntry
	e.Enhanced = enhanced

	off, err := r.ReadU16()
	if err != nil {
		return e, err
	}
	e.Offset = off
	kind, err := r.ReadByte()
	if err != nil {
		return e, err
	}
	e.Kind = PatchKind(kind)
	if e.Size, err = r.ReadByte(); err != nil {
		return e, err
	}
	if enhanced {
		safety, err := r.ReadByte()
		if err != nil {
			return e, err
		}
		e.Safety = SafetyFlags(safety)
		if err := r.Skip(1); err != nil {
			return e, err
		}
	}
	for i := 0; i < e.VariantCount(); i++ {
		buf, err := r.ReadBytes(VariantSize)
		if err != nil {
			return e, err
		}
		copy(e.Variants[i][:], buf)
	}

	if _, ok := patchKindNames[e.Kind]; !ok {
		return e, r.WrapError("patch entry", fmt.Errorf("unknown patch kind %d", kind))
	}
	if e.Size == 0 || e.Size > VariantSize && e.Kind != PatchCopy {
		return e, r.WrapError("patch entry", fmt.Errorf("bad patch size %d for kind %s", e.Size, e.Kind))
	}
	return e, nil
}
