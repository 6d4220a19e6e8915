package installer

import (
	"go.uber.org/zap"

	"github.com/jfabienke/3com-packet-driver-sub011/errors"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin"
)

// Assignment is one installed interrupt vector.
type Assignment struct {
	Vector uint8
	Target uint32
	prev   uint32
}

// InstallResult describes a successful install: the retained resident block,
// the verified header, and the vectors now pointing into the block.
type InstallResult struct {
	Block   ResidentBlock
	Header  *modbin.ImageHeader
	Vectors []Assignment
}

// Install places a finished image in resident memory. Ordering is the
// package's one hard contract: allocate, copy, verify the header from the
// copied location, and only then install vectors. Once a vector is live the
// hardware can call into the block at any time, so no vector may ever point
// at unverified memory.
//
// On any failure the block is released and every vector already installed is
// restored; the host is left exactly as it was.
func Install(img []byte, host Host, vectors VectorTable) (*InstallResult, error) {
	size := (len(img) + ParagraphSize - 1) &^ (ParagraphSize - 1)
	blk, err := host.Allocate(size)
	if err != nil {
		return nil, errors.AllocationFailed(size, err)
	}
	copy(blk.Bytes(), img)

	// Verify the copy, not the source buffer.
	hdr, err := modbin.DecodeImageHeader(blk.Bytes())
	if err != nil {
		release(blk)
		return nil, errors.New(errors.StageInstall, errors.KindImageHeaderInvalid).
			Cause(err).Detail("header verification after copy").Build()
	}
	if int(hdr.ImageSize) != len(img) {
		release(blk)
		return nil, errors.New(errors.StageInstall, errors.KindImageHeaderInvalid).
			Detail("header claims %d bytes, image has %d", hdr.ImageSize, len(img)).Build()
	}

	wanted := []Assignment{
		{Vector: hdr.IntNumber, Target: blk.Base() + uint32(hdr.API)},
	}
	if hdr.Idle != 0 {
		wanted = append(wanted, Assignment{Vector: IdleVector, Target: blk.Base() + uint32(hdr.Idle)})
	}
	wanted = append(wanted, Assignment{Vector: IRQVector(hdr.IRQNumber), Target: blk.Base() + uint32(hdr.IRQ)})

	installed := make([]Assignment, 0, len(wanted))
	for _, a := range wanted {
		prev, err := vectors.Set(a.Vector, a.Target)
		if err != nil {
			restore(vectors, installed)
			release(blk)
			return nil, errors.New(errors.StageInstall, errors.KindInternal).
				Cause(err).Detail("installing vector 0x%02x", a.Vector).Build()
		}
		a.prev = prev
		installed = append(installed, a)
	}

	Logger().Info("image installed",
		zap.Uint32("base", blk.Base()),
		zap.Int("resident_bytes", size),
		zap.Uint8("api_int", hdr.IntNumber),
		zap.Uint8("irq", hdr.IRQNumber))
	return &InstallResult{Block: blk, Header: hdr, Vectors: installed}, nil
}

// Uninstall restores every vector the install claimed and releases the
// resident block.
func (r *InstallResult) Uninstall(vectors VectorTable) error {
	restore(vectors, r.Vectors)
	return r.Block.Release()
}

func restore(vectors VectorTable, installed []Assignment) {
	for i := len(installed) - 1; i >= 0; i-- {
		if _, err := vectors.Set(installed[i].Vector, installed[i].prev); err != nil {
			Logger().Error("vector restore failed",
				zap.Uint8("vector", installed[i].Vector), zap.Error(err))
		}
	}
}

func release(blk ResidentBlock) {
	if err := blk.Release(); err != nil {
		Logger().Error("resident block release failed", zap.Error(err))
	}
}
