package bootpack

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// SplitPayload separates a payload into its gzip member and the raw device tree
// that follows it. The boundary is where the member's 8-byte CRC32/ISIZE trailer
// ends; there is no length field to consult.
//
// The reader is given a *bytes.Reader, which satisfies flate.Reader, so the gzip
// reader consumes it byte-exactly and never buffers past the trailer.
func SplitPayload(payload []byte) (compressed, deviceTree []byte, err error) {
	end, err := gzipMemberEnd(payload)
	if err != nil {
		return nil, nil, err
	}

	return payload[:end], payload[end:], nil
}

// gzipMemberEnd returns the offset just past the first gzip member in b.
func gzipMemberEnd(b []byte) (int, error) {
	const stage = "locate device tree"

	r := bytes.NewReader(b)
	zr, err := gzip.NewReader(r)
	if err != nil {
		return 0, newErr(ErrMalformedImage, stage, "gzip header", err)
	}
	zr.Multistream(false)

	// Drain the member; the checksum is verified on EOF.
	if _, err := io.Copy(io.Discard, zr); err != nil {
		return 0, newErr(ErrMalformedImage, stage, "gzip stream", err)
	}
	if err := zr.Close(); err != nil {
		return 0, newErr(ErrMalformedImage, stage, "gzip stream", err)
	}

	return len(b) - r.Len(), nil
}

// decompressMember inflates a single gzip member and requires it to use all of b.
func decompressMember(b []byte) ([]byte, error) {
	const stage = "decompress payload"

	r := bytes.NewReader(b)
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, newErr(ErrMalformedImage, stage, "gzip header", err)
	}
	zr.Multistream(false)

	var out bytes.Buffer
	if _, err := io.Copy(&out, zr); err != nil {
		return nil, newErr(ErrMalformedImage, stage, "gzip stream", err)
	}
	if r.Len() != 0 {
		return nil, errorf(ErrMalformedImage, stage, "gzip stream", "%d bytes after member", r.Len())
	}

	return out.Bytes(), nil
}
