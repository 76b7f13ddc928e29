package bootpack

import (
	"bytes"
	"fmt"
	"io"

	gzip "github.com/klauspost/pgzip"
)

// Segment origins
const (
	OriginStub           = "stub"
	OriginFirmwareVolume = "firmware-volume"
	OriginDeviceTree     = "device-tree"
	OriginRamdisk        = "ramdisk"
)

// Segment is an opaque input blob. Only its length is ever interpreted.
type Segment struct {
	Origin string
	Data   []byte
}

// NewSegment returns a Segment for data coming from origin.
func NewSegment(origin string, data []byte) Segment {
	return Segment{Origin: origin, Data: data}
}

// Len returns the segment length in bytes.
func (s Segment) Len() int {
	return len(s.Data)
}

func (s Segment) String() string {
	return fmt.Sprintf("%s (%d bytes)", s.Origin, len(s.Data))
}

// checkSegment rejects missing or empty input.
func checkSegment(stage string, s Segment) error {
	if len(s.Data) == 0 {
		return errorf(ErrInvalidSegment, stage, s.Origin, "segment is empty")
	}

	return nil
}

// Payload is the kernel region of the boot image: gzip(stub ++ firmware volume)
// followed by the raw device tree.
//
// The stub finds the firmware volume at its own length, so the concatenation
// carries no padding or length prefix. The device tree is found by the end of
// the gzip member, which the bootloader side relies on.
type Payload struct {
	data           []byte
	compressedSize int
}

// Assemble builds a payload from the stub, firmware volume and device tree.
// Segment order is fixed and the steps run in sequence.
func Assemble(stub, fv, dt Segment) (*Payload, error) {
	const stage = "assemble payload"

	for _, s := range []Segment{stub, fv, dt} {
		if err := checkSegment(stage, s); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.Grow(stub.Len() + fv.Len() + dt.Len())

	writer, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, newErr(ErrCompression, stage, "preparing compressor", err)
	}

	if err := writeAll(writer, stub.Data); err != nil {
		return nil, newErr(ErrCompression, stage, stub.Origin, err)
	}
	if err := writeAll(writer, fv.Data); err != nil {
		return nil, newErr(ErrCompression, stage, fv.Origin, err)
	}

	// Close writes the final block and the CRC/size trailer.
	if err := writer.Close(); err != nil {
		return nil, newErr(ErrCompression, stage, "finishing stream", err)
	}

	compressedSize := buf.Len()
	buf.Write(dt.Data)

	return &Payload{
		data:           buf.Bytes(),
		compressedSize: compressedSize,
	}, nil
}

// writeAll fails on short writes instead of truncating.
func writeAll(w io.Writer, data []byte) error {
	n, err := w.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(data))
	}

	return nil
}

// PayloadFromBytes wraps an existing kernel region, locating the device tree
// with SplitPayload.
func PayloadFromBytes(data []byte) (*Payload, error) {
	compressed, _, err := SplitPayload(data)
	if err != nil {
		return nil, err
	}

	return &Payload{data: data, compressedSize: len(compressed)}, nil
}

// Bytes returns the encoded payload.
func (p *Payload) Bytes() []byte {
	return p.data
}

// Len returns the payload size in bytes.
func (p *Payload) Len() int {
	return len(p.data)
}

// CompressedSize returns the length of the gzip member at the start of the payload.
func (p *Payload) CompressedSize() int {
	return p.compressedSize
}

// DeviceTree returns the uncompressed trailer.
func (p *Payload) DeviceTree() []byte {
	return p.data[p.compressedSize:]
}

// Decompress returns stub ++ firmware volume.
func (p *Payload) Decompress() ([]byte, error) {
	return decompressMember(p.data[:p.compressedSize])
}

// Firmware cuts the decompressed payload at the stub length and returns the
// stub and the firmware volume.
func (p *Payload) Firmware(stubLen int) (stub, fv []byte, err error) {
	raw, err := p.Decompress()
	if err != nil {
		return nil, nil, err
	}
	if stubLen <= 0 || stubLen >= len(raw) {
		return nil, nil, errorf(ErrMalformedImage, "split firmware", "stub length",
			"%d outside decompressed payload of %d bytes", stubLen, len(raw))
	}

	return raw[:stubLen], raw[stubLen:], nil
}
