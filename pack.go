package bootpack

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"io"
	"math"
)

// validPageSizes lists the flash page sizes mkbootimg accepts.
var validPageSizes = map[uint32]bool{
	2048:  true,
	4096:  true,
	8192:  true,
	16384: true,
}

// paddingSize calculates the amount of padding necessary for the page size.
func paddingSize(pageSize uint32, dataSize int) int {
	pageMask := int(pageSize) - 1
	pbSize := dataSize & pageMask

	if pbSize == 0 {
		return 0
	}

	return int(pageSize) - pbSize
}

// writePadding writes zero padding up to the next page boundary.
func writePadding(out io.Writer, pageSize uint32, dataSize int) (err error) {
	size := paddingSize(pageSize, dataSize)
	if size == 0 {
		return
	}

	pad := make([]byte, size)
	_, err = out.Write(pad)

	return
}

// address adds an offset to the base and checks it fits the 32-bit header field.
func address(base, offset uint64, field string) (uint32, error) {
	addr := base + offset
	if addr < base || addr > math.MaxUint32 {
		return 0, errorf(ErrEncodingOverflow, "encode header", field,
			"base 0x%x + offset 0x%x does not fit in 32 bits", base, offset)
	}

	return uint32(addr), nil
}

// sizeField checks a region length fits the 32-bit size field.
func sizeField(n int, field string) (uint32, error) {
	if uint64(n) > math.MaxUint32 {
		return 0, errorf(ErrEncodingOverflow, "encode header", field, "%d bytes does not fit in 32 bits", n)
	}

	return uint32(n), nil
}

// checkConfig validates the parts of cfg that do not depend on the segments.
func checkConfig(cfg *Config) error {
	const stage = "encode header"

	if cfg.HeaderVersion > MaxHeaderVersion {
		return errorf(ErrInvalidConfig, stage, "header_version", "version %d is not supported (max %d)",
			cfg.HeaderVersion, MaxHeaderVersion)
	}
	if !validPageSizes[cfg.PageSize] {
		return errorf(ErrInvalidConfig, stage, "page_size", "%d is not one of 2048, 4096, 8192, 16384", cfg.PageSize)
	}
	if len(cfg.Board) >= BootNameSize {
		return errorf(ErrEncodingOverflow, stage, "board", "%d bytes, at most %d allowed", len(cfg.Board), BootNameSize-1)
	}
	if limit := BootArgsSize - 1 + BootExtraArgsSize - 1; len(cfg.Cmdline) > limit {
		return errorf(ErrEncodingOverflow, stage, "cmdline", "%d bytes, at most %d allowed", len(cfg.Cmdline), limit)
	}

	return nil
}

// Encode wraps the payload and ramdisk in a boot image. Header version 2
// images also carry the payload's device tree in the dtb region.
// An empty ramdisk is allowed and gets a zero size region.
func Encode(payload *Payload, ramdisk Segment, cfg Config) (*BootImage, error) {
	if payload == nil || payload.Len() == 0 {
		return nil, errorf(ErrInvalidSegment, "encode image", "payload", "payload is empty")
	}
	if err := checkConfig(&cfg); err != nil {
		return nil, err
	}

	img := &BootImage{
		Kernel:  payload.Bytes(),
		Ramdisk: ramdisk.Data,
	}
	if cfg.HeaderVersion >= HeaderV2 {
		img.Dtb = payload.DeviceTree()
	}

	hdr, err := buildHeader(img, &cfg)
	if err != nil {
		return nil, err
	}

	img.Header = hdr
	img.Layout = layoutFor(&img.Header)
	img.Header.ID = img.checksum()

	return img, nil
}

func buildHeader(img *BootImage, cfg *Config) (Header, error) {
	var hdr Header
	var err error

	word, err := encodeOSVersion(cfg.OSVersion, cfg.PatchLevel)
	if err != nil {
		return hdr, err
	}

	hdr.Version = cfg.HeaderVersion
	hdr.PageSize = cfg.PageSize
	hdr.osVersion = word
	hdr.OSVersion, hdr.Patch = decodeOSVersion(word)
	hdr.Board = cfg.Board
	hdr.Cmdline = cfg.Cmdline

	if hdr.KernelSize, err = sizeField(len(img.Kernel), "kernel_size"); err != nil {
		return hdr, err
	}
	if hdr.RamdiskSize, err = sizeField(len(img.Ramdisk), "ramdisk_size"); err != nil {
		return hdr, err
	}
	if hdr.DtbSize, err = sizeField(len(img.Dtb), "dtb_size"); err != nil {
		return hdr, err
	}

	if hdr.KernelAddr, err = address(cfg.Base, cfg.KernelOffset, "kernel_offset"); err != nil {
		return hdr, err
	}
	if hdr.RamdiskAddr, err = address(cfg.Base, cfg.RamdiskOffset, "ramdisk_offset"); err != nil {
		return hdr, err
	}
	if hdr.SecondAddr, err = address(cfg.Base, cfg.SecondOffset, "second_offset"); err != nil {
		return hdr, err
	}
	if hdr.TagsAddr, err = address(cfg.Base, cfg.TagsOffset, "tags_offset"); err != nil {
		return hdr, err
	}

	if cfg.HeaderVersion >= HeaderV1 {
		hdr.HeaderSize = headerSize(cfg.HeaderVersion)
	}
	if cfg.HeaderVersion >= HeaderV2 {
		addr := cfg.Base + cfg.DtbOffset
		if addr < cfg.Base {
			return hdr, errorf(ErrEncodingOverflow, "encode header", "dtb_offset",
				"base 0x%x + offset 0x%x does not fit in 64 bits", cfg.Base, cfg.DtbOffset)
		}
		hdr.DtbAddr = addr
	}

	return hdr, nil
}

// checksum computes the id mkbootimg stores: SHA-1 over each region followed
// by its little endian size.
func (img *BootImage) checksum() (id [BootIDSize]byte) {
	h := sha1.New()
	var size [4]byte

	add := func(data []byte) {
		h.Write(data)
		binary.LittleEndian.PutUint32(size[:], uint32(len(data)))
		h.Write(size[:])
	}

	add(img.Kernel)
	add(img.Ramdisk)
	add(img.Second)
	if img.Header.Version >= HeaderV1 {
		add(img.RecoveryDtbo)
	}
	if img.Header.Version >= HeaderV2 {
		add(img.Dtb)
	}

	copy(id[:], h.Sum(nil))
	return
}

// rawHeader converts the header into its on-disk form.
func (hdr *Header) rawHeader() RawHeaderV2 {
	var raw RawHeaderV2
	v0 := &raw.RawHeaderV0

	v0.Magic = BootMagicBytes
	v0.KernelSize = hdr.KernelSize
	v0.KernelAddr = hdr.KernelAddr
	v0.RamdiskSize = hdr.RamdiskSize
	v0.RamdiskAddr = hdr.RamdiskAddr
	v0.SecondSize = hdr.SecondSize
	v0.SecondAddr = hdr.SecondAddr
	v0.TagsAddr = hdr.TagsAddr
	v0.PageSize = hdr.PageSize
	v0.HeaderVersion = hdr.Version
	v0.OSVersion = hdr.osVersion
	copy(v0.Board[:], hdr.Board)
	v0.ID = hdr.ID

	// Both fields keep their NUL terminator, as mkbootimg writes them.
	cmdLen := len(hdr.Cmdline)
	if cmdLen < BootArgsSize {
		copy(v0.Cmdline[:], hdr.Cmdline)
	} else {
		copy(v0.Cmdline[:BootArgsSize-1], hdr.Cmdline)
		copy(v0.ExtraCmdline[:BootExtraArgsSize-1], hdr.Cmdline[BootArgsSize-1:])
	}

	raw.RecoveryDtboSize = hdr.RecoveryDtboSize
	raw.RecoveryDtboOffset = hdr.RecoveryDtboOffset
	raw.HeaderSize = hdr.HeaderSize
	raw.DtbSize = hdr.DtbSize
	raw.DtbAddr = hdr.DtbAddr

	return raw
}

// WriteHeader writes the header in Android boot format, padded to one page.
func (img *BootImage) WriteHeader(out io.Writer) (err error) {
	raw := img.Header.rawHeader()

	var buf bytes.Buffer
	switch img.Header.Version {
	case HeaderV0:
		err = binary.Write(&buf, binary.LittleEndian, &raw.RawHeaderV0)
	case HeaderV1:
		err = binary.Write(&buf, binary.LittleEndian, &raw.RawHeaderV1)
	default:
		err = binary.Write(&buf, binary.LittleEndian, &raw)
	}
	if err != nil {
		return
	}

	count, err := out.Write(buf.Bytes())
	if err != nil {
		return
	}

	return writePadding(out, img.Header.PageSize, count)
}

// writePaddedSection writes data to the output, then pads it to the page size.
func (img *BootImage) writePaddedSection(out io.Writer, data []byte) (err error) {
	count, err := out.Write(data)
	if err != nil {
		return
	}
	if count != len(data) {
		return io.ErrShortWrite
	}

	return writePadding(out, img.Header.PageSize, count)
}

// WriteData writes the regions (kernel, ramdisk, etc) to the output.
func (img *BootImage) WriteData(out io.Writer) (err error) {
	err = img.writePaddedSection(out, img.Kernel)
	if err != nil {
		return
	}

	err = img.writePaddedSection(out, img.Ramdisk)
	if err != nil {
		return
	}

	if len(img.Second) > 0 {
		err = img.writePaddedSection(out, img.Second)
		if err != nil {
			return
		}
	}

	if img.Header.Version >= HeaderV1 && len(img.RecoveryDtbo) > 0 {
		err = img.writePaddedSection(out, img.RecoveryDtbo)
		if err != nil {
			return
		}
	}

	if img.Header.Version >= HeaderV2 && len(img.Dtb) > 0 {
		err = img.writePaddedSection(out, img.Dtb)
		if err != nil {
			return
		}
	}

	return
}

// WriteTo writes the whole image to w.
func (img *BootImage) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	if err := img.WriteHeader(cw); err != nil {
		return cw.n, err
	}
	if err := img.WriteData(cw); err != nil {
		return cw.n, err
	}

	return cw.n, nil
}

// Bytes dumps the image into a byte slice.
func (img *BootImage) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, img.Layout.End))

	if _, err := img.WriteTo(buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
