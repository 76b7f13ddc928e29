package bootpack

import (
	"encoding/binary"
	"testing"
)

// minimalFDT builds an empty tree: header, reservation map terminator and a bare root node.
func minimalFDT() []byte {
	const hdrSize = 40
	be := binary.BigEndian

	rsvmap := make([]byte, 16)
	dtStruct := make([]byte, 0, 16)
	dtStruct = be.AppendUint32(dtStruct, fdtBeginNode)
	dtStruct = be.AppendUint32(dtStruct, 0) // empty name, padded
	dtStruct = be.AppendUint32(dtStruct, 0x2)
	dtStruct = be.AppendUint32(dtStruct, 0x9)

	offRsv := uint32(hdrSize)
	offStruct := offRsv + uint32(len(rsvmap))
	offStrings := offStruct + uint32(len(dtStruct))

	b := make([]byte, 0, offStrings)
	for _, v := range []uint32{
		FDTMagic, offStrings, offStruct, offStrings, offRsv,
		17, 16, 0, 0, uint32(len(dtStruct)),
	} {
		b = be.AppendUint32(b, v)
	}
	b = append(b, rsvmap...)
	return append(b, dtStruct...)
}

func TestProbeFDT(t *testing.T) {
	b := minimalFDT()

	hdr, ok := ProbeFDT(b)
	if !ok {
		t.Fatalf("minimal tree not recognised: %+v", hdr)
	}
	if hdr.TotalSize != uint32(len(b)) || hdr.Version != 17 {
		t.Fatalf("header %+v", hdr)
	}

	// Trailing data after the blob is fine.
	if _, ok := ProbeFDT(append(b, pattern(0x55, 64)...)); !ok {
		t.Fatalf("tree with trailer not recognised")
	}
}

func TestProbeFDTRejects(t *testing.T) {
	cases := map[string][]byte{
		"empty":   nil,
		"opaque":  pattern(0x55, 256),
		"short":   minimalFDT()[:20],
		"clipped": minimalFDT()[:60],
	}

	bad := minimalFDT()
	binary.BigEndian.PutUint32(bad[4:], 8)
	cases["tiny total size"] = bad

	noRoot := minimalFDT()
	binary.BigEndian.PutUint32(noRoot[56:], 0x3)
	cases["no root node"] = noRoot

	for name, b := range cases {
		if _, ok := ProbeFDT(b); ok {
			t.Fatalf("%s: probed as a device tree", name)
		}
	}
}
