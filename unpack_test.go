package bootpack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// countingReaderAt records the furthest offset read.
type countingReaderAt struct {
	r     io.ReaderAt
	reads int
	max   int64
}

func (c *countingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	c.reads++
	if end := off + int64(len(p)); end > c.max {
		c.max = end
	}
	return c.r.ReadAt(p, off)
}

func TestDecodeBadMagic(t *testing.T) {
	b := encodeBytes(t, scenarioPayload(t), pattern(0xFF, 128), scenarioConfig())

	for i := 0; i < 4; i++ {
		corrupt := append([]byte(nil), b...)
		corrupt[i] ^= 0x20

		cr := &countingReaderAt{r: bytes.NewReader(corrupt)}
		_, err := DecodeReader(cr, int64(len(corrupt)))
		if !errors.Is(err, ErrMalformedImage) {
			t.Fatalf("byte %d: expected malformed image, got %v", i, err)
		}
		if cr.reads != 1 || cr.max > BootMagicSize {
			t.Fatalf("byte %d: read %d times up to %d, want only the magic", i, cr.reads, cr.max)
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	b := encodeBytes(t, scenarioPayload(t), pattern(0xFF, 128), scenarioConfig())
	img, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}

	// The last region may lack its padding.
	end := int(img.Layout.Ramdisk) + 128
	if _, err := Decode(b[:end]); err != nil {
		t.Fatalf("unpadded tail: %v", err)
	}

	for _, n := range []int{0, 4, BootMagicSize, 100, HeaderV0Size, HeaderV1Size - 1, int(img.Layout.Kernel) + 10, end - 1} {
		if _, err := Decode(b[:n]); !errors.Is(err, ErrMalformedImage) {
			t.Fatalf("truncated to %d: expected malformed image, got %v", n, err)
		}
	}
}

func TestDecodeSizeExceedsImage(t *testing.T) {
	b := encodeBytes(t, scenarioPayload(t), pattern(0xFF, 128), scenarioConfig())

	for _, off := range []int{8, 16} {
		corrupt := append([]byte(nil), b...)
		binary.LittleEndian.PutUint32(corrupt[off:], 0xfffffff0)
		if _, err := Decode(corrupt); !errors.Is(err, ErrMalformedImage) {
			t.Fatalf("size at %d: expected malformed image, got %v", off, err)
		}
	}
}

func TestDecodeBadHeaderFields(t *testing.T) {
	b := encodeBytes(t, scenarioPayload(t), nil, scenarioConfig())

	cases := map[string]func([]byte){
		"page size":      func(b []byte) { binary.LittleEndian.PutUint32(b[36:], 3000) },
		"header version": func(b []byte) { binary.LittleEndian.PutUint32(b[40:], 9) },
		"header size":    func(b []byte) { binary.LittleEndian.PutUint32(b[1644:], 1) },
	}
	for name, mutate := range cases {
		corrupt := append([]byte(nil), b...)
		mutate(corrupt)
		if _, err := Decode(corrupt); !errors.Is(err, ErrMalformedImage) {
			t.Fatalf("%s: expected malformed image, got %v", name, err)
		}
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	b := encodeBytes(t, scenarioPayload(t), pattern(0xFF, 128), scenarioConfig())
	img, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}

	img.Ramdisk[0] = 0
	if err := img.Verify(); !errors.Is(err, ErrMalformedImage) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}

func TestDecodeCopiesRegions(t *testing.T) {
	b := encodeBytes(t, scenarioPayload(t), pattern(0xFF, 128), scenarioConfig())
	img, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}

	for i := range b {
		b[i] = 0
	}
	if !bytes.Equal(img.Ramdisk, pattern(0xFF, 128)) {
		t.Fatalf("decoded ramdisk aliases the input buffer")
	}
}
