package bootpack

import (
	"bytes"
	"encoding/binary"
)

// FDTMagic starts every flattened device tree blob.
const FDTMagic = 0xd00dfeed

const fdtBeginNode = 0x1

// FDTHeader is the big endian header of a flattened device tree.
type FDTHeader struct {
	Magic           uint32
	TotalSize       uint32
	OffDtStruct     uint32
	OffDtStrings    uint32
	OffMemRsvmap    uint32
	Version         uint32
	LastCompVersion uint32
	BootCpuidPhys   uint32
	SizeDtStrings   uint32
	SizeDtStruct    uint32
}

// ProbeFDT reads the device tree header at the start of b. It reports false
// for anything that is not a self-consistent FDT; the payload trailer is
// opaque, so that is informational only.
func ProbeFDT(b []byte) (FDTHeader, bool) {
	var hdr FDTHeader
	if len(b) < binary.Size(hdr) {
		return hdr, false
	}

	if err := binary.Read(bytes.NewReader(b), binary.BigEndian, &hdr); err != nil {
		return hdr, false
	}
	if hdr.Magic != FDTMagic {
		return hdr, false
	}
	if hdr.TotalSize < uint32(binary.Size(hdr)) || uint64(hdr.TotalSize) > uint64(len(b)) ||
		hdr.OffDtStruct > hdr.TotalSize-4 {
		return hdr, false
	}

	// The structure block opens with the root node.
	tag := binary.BigEndian.Uint32(b[hdr.OffDtStruct:])
	return hdr, tag == fdtBeginNode
}
