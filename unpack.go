package bootpack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Decode parses an Android boot image held in b. The magic is checked before
// any other field is read, and every region must lie inside b.
// The returned regions are copies.
func Decode(b []byte) (*BootImage, error) {
	return DecodeReader(bytes.NewReader(b), int64(len(b)))
}

// DecodeReader parses a boot image of the given size from r.
func DecodeReader(r io.ReaderAt, size int64) (*BootImage, error) {
	const stage = "decode image"

	var magic [BootMagicSize]byte
	if size < BootMagicSize {
		return nil, errorf(ErrMalformedImage, stage, "magic", "image is %d bytes", size)
	}
	if _, err := r.ReadAt(magic[:], 0); err != nil {
		return nil, newErr(ErrMalformedImage, stage, "magic", err)
	}
	if magic != BootMagicBytes {
		return nil, errorf(ErrMalformedImage, stage, "magic", "found %q, want %q", magic[:], BootMagic)
	}

	hdr, err := readHeader(r, size)
	if err != nil {
		return nil, err
	}

	img := &BootImage{
		Header: *hdr,
		Layout: layoutFor(hdr),
	}
	if img.Layout.End > uint64(size) {
		// The last region may legitimately lack its padding.
		if err := checkRegion(img.Layout.Kernel, hdr.KernelSize, size, "kernel"); err != nil {
			return nil, err
		}
		if err := checkRegion(img.Layout.Ramdisk, hdr.RamdiskSize, size, "ramdisk"); err != nil {
			return nil, err
		}
		if err := checkRegion(img.Layout.Second, hdr.SecondSize, size, "second"); err != nil {
			return nil, err
		}
		if err := checkRegion(img.Layout.RecoveryDtbo, hdr.RecoveryDtboSize, size, "recovery_dtbo"); err != nil {
			return nil, err
		}
		if err := checkRegion(img.Layout.Dtb, hdr.DtbSize, size, "dtb"); err != nil {
			return nil, err
		}
	}

	regions := []struct {
		dst    *[]byte
		offset uint64
		size   uint32
		name   string
	}{
		{&img.Kernel, img.Layout.Kernel, hdr.KernelSize, "kernel"},
		{&img.Ramdisk, img.Layout.Ramdisk, hdr.RamdiskSize, "ramdisk"},
		{&img.Second, img.Layout.Second, hdr.SecondSize, "second"},
		{&img.RecoveryDtbo, img.Layout.RecoveryDtbo, hdr.RecoveryDtboSize, "recovery_dtbo"},
		{&img.Dtb, img.Layout.Dtb, hdr.DtbSize, "dtb"},
	}
	for _, reg := range regions {
		data := make([]byte, reg.size)
		if reg.size > 0 {
			if _, err := r.ReadAt(data, int64(reg.offset)); err != nil {
				return nil, newErr(ErrMalformedImage, stage, reg.name, err)
			}
		}
		*reg.dst = data
	}

	return img, nil
}

// checkRegion fails when [offset, offset+n) is not inside an image of the given size.
func checkRegion(offset uint64, n uint32, size int64, name string) error {
	if n > 0 && offset+uint64(n) > uint64(size) {
		return errorf(ErrMalformedImage, "decode image", name+"_size",
			"region 0x%x+%d exceeds image size %d", offset, n, size)
	}

	return nil
}

// readHeader reads the fixed header after the magic has been checked.
func readHeader(r io.ReaderAt, size int64) (*Header, error) {
	const stage = "decode header"

	if size < HeaderV0Size {
		return nil, errorf(ErrMalformedImage, stage, "header", "image is %d bytes, header needs %d", size, HeaderV0Size)
	}

	var raw RawHeaderV2
	sr := io.NewSectionReader(r, 0, size)
	if err := binary.Read(sr, binary.LittleEndian, &raw.RawHeaderV0); err != nil {
		return nil, newErr(ErrMalformedImage, stage, "header", err)
	}

	v0 := &raw.RawHeaderV0
	if v0.HeaderVersion > MaxHeaderVersion {
		return nil, errorf(ErrMalformedImage, stage, "header_version", "version %d is not supported", v0.HeaderVersion)
	}
	if !validPageSizes[v0.PageSize] {
		return nil, errorf(ErrMalformedImage, stage, "page_size", "%d is not a valid page size", v0.PageSize)
	}

	need := int64(headerSize(v0.HeaderVersion))
	if size < need {
		return nil, errorf(ErrMalformedImage, stage, "header", "image is %d bytes, v%d header needs %d",
			size, v0.HeaderVersion, need)
	}

	if v0.HeaderVersion >= HeaderV1 {
		var ext struct {
			RecoveryDtboSize   uint32
			RecoveryDtboOffset uint64
			HeaderSize         uint32
		}
		if err := binary.Read(sr, binary.LittleEndian, &ext); err != nil {
			return nil, newErr(ErrMalformedImage, stage, "header v1", err)
		}
		raw.RecoveryDtboSize = ext.RecoveryDtboSize
		raw.RecoveryDtboOffset = ext.RecoveryDtboOffset
		raw.HeaderSize = ext.HeaderSize

		if raw.HeaderSize != uint32(need) {
			return nil, errorf(ErrMalformedImage, stage, "header_size", "%d, want %d", raw.HeaderSize, need)
		}
	}
	if v0.HeaderVersion >= HeaderV2 {
		var ext struct {
			DtbSize uint32
			DtbAddr uint64
		}
		if err := binary.Read(sr, binary.LittleEndian, &ext); err != nil {
			return nil, newErr(ErrMalformedImage, stage, "header v2", err)
		}
		raw.DtbSize = ext.DtbSize
		raw.DtbAddr = ext.DtbAddr
	}

	return raw.header(), nil
}

// header converts the on-disk form into a Header.
func (raw *RawHeaderV2) header() *Header {
	v0 := &raw.RawHeaderV0

	hdr := &Header{
		Version:   v0.HeaderVersion,
		PageSize:  v0.PageSize,
		osVersion: v0.OSVersion,

		KernelSize:  v0.KernelSize,
		KernelAddr:  v0.KernelAddr,
		RamdiskSize: v0.RamdiskSize,
		RamdiskAddr: v0.RamdiskAddr,
		SecondSize:  v0.SecondSize,
		SecondAddr:  v0.SecondAddr,
		TagsAddr:    v0.TagsAddr,

		RecoveryDtboSize:   raw.RecoveryDtboSize,
		RecoveryDtboOffset: raw.RecoveryDtboOffset,
		HeaderSize:         raw.HeaderSize,
		DtbSize:            raw.DtbSize,
		DtbAddr:            raw.DtbAddr,

		Board:   cString(v0.Board[:]),
		Cmdline: cString(v0.Cmdline[:]) + cString(v0.ExtraCmdline[:]),
		ID:      v0.ID,
	}
	hdr.OSVersion, hdr.Patch = decodeOSVersion(v0.OSVersion)

	return hdr
}

// cString returns b up to its first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}

	return string(b)
}

// Verify recomputes the header id and reports whether it matches.
func (img *BootImage) Verify() error {
	if id := img.checksum(); id != img.Header.ID {
		return errorf(ErrMalformedImage, "verify image", "id", "checksum %x, header has %x", id[:20], img.Header.ID[:20])
	}

	return nil
}

// String summarizes the header in mkbootimg argument terms.
func (h *Header) String() string {
	return fmt.Sprintf("header_version=%d pagesize=%d os_version=%s os_patch_level=%s kernel=%d@0x%08x ramdisk=%d@0x%08x tags=0x%08x",
		h.Version, h.PageSize, h.OSVersion, h.Patch, h.KernelSize, h.KernelAddr, h.RamdiskSize, h.RamdiskAddr, h.TagsAddr)
}
