package bootpack

import (
	"bytes"
	"compress/gzip"
	"errors"
	"testing"
)

func TestSplitPayload(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("stub and firmware"))
	zw.Close()
	member := append([]byte(nil), buf.Bytes()...)

	cases := map[string][]byte{
		"empty trailer": nil,
		"pattern":       pattern(0x55, 256),
		// A trailer that itself looks like gzip must not be consumed.
		"gzip trailer": member,
		"fdt magic":    {0xd0, 0x0d, 0xfe, 0xed, 0, 0, 0, 0x28},
	}
	for name, trailer := range cases {
		payload := append(append([]byte(nil), member...), trailer...)

		compressed, dt, err := SplitPayload(payload)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !bytes.Equal(compressed, member) {
			t.Fatalf("%s: compressed region is %d bytes, want %d", name, len(compressed), len(member))
		}
		if !bytes.Equal(dt, trailer) {
			t.Fatalf("%s: trailer mismatch", name)
		}
	}
}

func TestSplitPayloadMalformed(t *testing.T) {
	p, err := Assemble(NewSegment(OriginStub, pattern(0, 512)), NewSegment(OriginFirmwareVolume, pattern(0xAA, 4096)),
		NewSegment(OriginDeviceTree, pattern(0x55, 256)))
	if err != nil {
		t.Fatal(err)
	}
	good := p.Bytes()

	corrupt := append([]byte(nil), good...)
	// Flip a byte of the CRC32 trailer.
	corrupt[p.CompressedSize()-8] ^= 0xff

	cases := map[string][]byte{
		"empty":        nil,
		"not gzip":     pattern(0x55, 64),
		"truncated":    good[:p.CompressedSize()-4],
		"header only":  good[:10],
		"bad checksum": corrupt,
	}
	for name, b := range cases {
		if _, _, err := SplitPayload(b); !errors.Is(err, ErrMalformedImage) {
			t.Fatalf("%s: expected malformed image, got %v", name, err)
		}
	}
}

func TestDecompressMemberRejectsTrailer(t *testing.T) {
	p, err := Assemble(NewSegment(OriginStub, pattern(0, 4)), NewSegment(OriginFirmwareVolume, pattern(0xAA, 4)),
		NewSegment(OriginDeviceTree, pattern(0x55, 4)))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := decompressMember(p.Bytes()); !errors.Is(err, ErrMalformedImage) {
		t.Fatalf("expected trailing bytes to be rejected, got %v", err)
	}
}
