package modbin

import (
	"bytes"
	"fmt"

	"github.com/jfabienke/3com-packet-driver-sub011/modbin/internal/binary"
)

// ImageHeaderSize is the exact serialized size of an ImageHeader.
const ImageHeaderSize = 32

// ImageMagic is the constant at offset 0 of every finished resident image.
var ImageMagic = [4]byte{'3', 'C', 'R', 'I'}

// ImageVersion is the current image format version.
const ImageVersion = 0x0100

// ImageHeader is written at offset 0 of the finished image. It is the sole
// contract between the builder and the installer: the installer reads entry
// points from it and never inspects module internals.
//
// Wire layout (little-endian, 32 bytes):
//
//	magic(4) version(2) image_size(2)
//	api_offset(2) idle_offset(2) irq_offset(2)
//	data_offset(2) data_size(2) stack_offset(2) stack_size(2)
//	uninstall_offset(2) irq_number(1) int_number(1) reserved(6)
type ImageHeader struct {
	Version   uint16
	ImageSize uint16
	API       uint16
	Idle      uint16
	IRQ       uint16
	Data      uint16
	DataSize  uint16
	Stack     uint16
	StackSize uint16
	Uninstall uint16
	IRQNumber uint8
	IntNumber uint8
}

// Encode serializes the header to exactly ImageHeaderSize bytes.
func (h *ImageHeader) Encode() []byte {
	w := binary.NewWriter()
	w.WriteBytes(ImageMagic[:])
	w.WriteU16(h.Version)
	w.WriteU16(h.ImageSize)
	w.WriteU16(h.API)
	w.WriteU16(h.Idle)
	w.WriteU16(h.IRQ)
	w.WriteU16(h.Data)
	w.WriteU16(h.DataSize)
	w.WriteU16(h.Stack)
	w.WriteU16(h.StackSize)
	w.WriteU16(h.Uninstall)
	w.Byte(h.IRQNumber)
	w.Byte(h.IntNumber)
	w.Zero(6)
	return w.Bytes()
}

// DecodeImageHeader parses an ImageHeader from the start of data,
// verifying magic and version.
func DecodeImageHeader(data []byte) (*ImageHeader, error) {
	if len(data) < ImageHeaderSize {
		return nil, fmt.Errorf("modbin: image header truncated: %d bytes", len(data))
	}
	r := binary.NewBytesReader(data)

	magic, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, ImageMagic[:]) {
		return nil, r.WrapError("image header", fmt.Errorf("bad magic % x", magic))
	}

	var h ImageHeader
	if h.Version, err = r.ReadU16(); err != nil {
		return nil, err
	}
	if h.Version != ImageVersion {
		return nil, r.WrapError("image header", fmt.Errorf("unsupported image version 0x%04x", h.Version))
	}
	fields := []*uint16{
		&h.ImageSize, &h.API, &h.Idle, &h.IRQ,
		&h.Data, &h.DataSize, &h.Stack, &h.StackSize, &h.Uninstall,
	}
	for _, f := range fields {
		if *f, err = r.ReadU16(); err != nil {
			return nil, err
		}
	}
	if h.IRQNumber, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if h.IntNumber, err = r.ReadByte(); err != nil {
		return nil, err
	}
	return &h, nil
}
