package bootpack

// Boot image format constants
const (
	BootMagic         = "ANDROID!"
	BootMagicSize     = 8
	BootNameSize      = 16
	BootArgsSize      = 512
	BootIDSize        = 32
	BootExtraArgsSize = 1024
)

// BootMagicBytes is the image header magic number, in byte array form
var BootMagicBytes = [...]byte{'A', 'N', 'D', 'R', 'O', 'I', 'D', '!'}

// Header versions understood by the encoder and decoder.
const (
	HeaderV0 = iota
	HeaderV1
	HeaderV2

	MaxHeaderVersion = HeaderV2
)

// Serialized header sizes per version.
const (
	HeaderV0Size = 1632
	HeaderV1Size = 1648
	HeaderV2Size = 1660
)

// DefaultPageSize is the flash page size mkbootimg uses when none is given.
const DefaultPageSize = 2048

// RawHeaderV0 directly correlates to the version 0 Android boot image header.
type RawHeaderV0 struct {
	// Android header magic
	Magic [BootMagicSize]byte

	// Size of the kernel in bytes
	KernelSize uint32
	// Kernel physical load address
	KernelAddr uint32

	// Size of the ramdisk in bytes
	RamdiskSize uint32
	// Ramdisk physical load address
	RamdiskAddr uint32

	// Size of the second stage bootloader in bytes
	SecondSize uint32
	// Second stage bootloader physical load address
	SecondAddr uint32

	// Kernel tags physical load address
	TagsAddr uint32
	// Flash page size
	PageSize uint32
	// Header layout version, 0 on legacy images
	HeaderVersion uint32

	/* OS version and security patch level
	 * For version A.B.C, patch level Y-M
	 * ver = A << 14 | B << 7 | C		 (7 bits for each ABC)
	 * lvl = ((Y - 2000) & 127) << 4 | M (7 bits for Y, 4 bits for M)
	 * os_version = ver << 11 | lvl */
	OSVersion uint32

	// Product/board name
	Board [BootNameSize]byte
	// Kernel command line
	Cmdline [BootArgsSize]byte

	// SHA-1 over the image regions
	ID [BootIDSize]byte

	// Supplemental cmdline data for compatibility with older formats
	ExtraCmdline [BootExtraArgsSize]byte
}

// RawHeaderV1 extends the v0 header with the recovery DTBO region.
type RawHeaderV1 struct {
	RawHeaderV0

	RecoveryDtboSize   uint32
	RecoveryDtboOffset uint64
	// Size of the serialized header in bytes
	HeaderSize uint32
}

// RawHeaderV2 extends the v1 header with a separate DTB region.
type RawHeaderV2 struct {
	RawHeaderV1

	DtbSize uint32
	DtbAddr uint64
}

// Header is the decoded, version independent view of a boot image header.
type Header struct {
	Version   uint32
	PageSize  uint32
	OSVersion OSVersion
	Patch     PatchLevel
	osVersion uint32

	KernelSize  uint32
	KernelAddr  uint32
	RamdiskSize uint32
	RamdiskAddr uint32
	SecondSize  uint32
	SecondAddr  uint32
	TagsAddr    uint32

	RecoveryDtboSize   uint32
	RecoveryDtboOffset uint64
	HeaderSize         uint32
	DtbSize            uint32
	DtbAddr            uint64

	Board   string
	Cmdline string
	ID      [BootIDSize]byte
}

// Config holds everything the encoder records in the header besides region sizes.
// Addresses are written as Base plus the matching offset.
type Config struct {
	Base          uint64
	KernelOffset  uint64
	RamdiskOffset uint64
	SecondOffset  uint64
	TagsOffset    uint64
	DtbOffset     uint64

	PageSize      uint32
	HeaderVersion uint32

	OSVersion  OSVersion
	PatchLevel PatchLevel

	Board   string
	Cmdline string
}

// Layout gives the file offset of each region of an encoded image.
type Layout struct {
	Kernel       uint64
	Ramdisk      uint64
	Second       uint64
	RecoveryDtbo uint64
	Dtb          uint64
	End          uint64
}

// BootImage is an encoded or decoded Android boot image.
type BootImage struct {
	Header Header
	Layout Layout

	Kernel       []byte
	Ramdisk      []byte
	Second       []byte
	RecoveryDtbo []byte
	Dtb          []byte
}

// headerSize returns the serialized header size for a header version.
func headerSize(version uint32) uint32 {
	switch version {
	case HeaderV0:
		return HeaderV0Size
	case HeaderV1:
		return HeaderV1Size
	default:
		return HeaderV2Size
	}
}

// alignUp rounds size up to a multiple of pageSize, which must be a power of two.
func alignUp(size, pageSize uint64) uint64 {
	mask := pageSize - 1
	return (size + mask) &^ mask
}

// layoutFor computes region placement. The header always fits in page 0.
func layoutFor(h *Header) Layout {
	page := uint64(h.PageSize)

	var l Layout
	l.Kernel = alignUp(uint64(headerSize(h.Version)), page)
	l.Ramdisk = l.Kernel + alignUp(uint64(h.KernelSize), page)
	l.Second = l.Ramdisk + alignUp(uint64(h.RamdiskSize), page)
	l.RecoveryDtbo = l.Second + alignUp(uint64(h.SecondSize), page)
	l.Dtb = l.RecoveryDtbo + alignUp(uint64(h.RecoveryDtboSize), page)
	l.End = l.Dtb + alignUp(uint64(h.DtbSize), page)

	return l
}
