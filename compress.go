package bootpack

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	gzip "github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Compression types/modes
const (
	CompNone = iota
	CompGzip
	CompLz4
	CompLzo
	CompXz
	CompBzip2
	CompLzma
	CompUnknown
)

var compNames = map[int]string{
	CompNone:    "none",
	CompGzip:    "gzip",
	CompLz4:     "lz4",
	CompLzo:     "lzo",
	CompXz:      "xz",
	CompBzip2:   "bzip2",
	CompLzma:    "lzma",
	CompUnknown: "unknown",
}

// CompressorName returns the name of a compression mode.
func CompressorName(cMode int) string {
	if name, ok := compNames[cMode]; ok {
		return name
	}

	return compNames[CompUnknown]
}

// ParseCompressor maps a name like "gzip" to its compression mode.
func ParseCompressor(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return CompNone, nil
	}

	for mode, n := range compNames {
		if n == name && mode != CompUnknown {
			return mode, nil
		}
	}

	return CompUnknown, errorf(ErrInvalidConfig, "parse compressor", "ramdisk_compression", "unknown compressor %q", name)
}

// DetectCompressor detects the compressor used for the input data.
func DetectCompressor(compr []byte) int {
	if len(compr) < 2 {
		return CompUnknown
	}

	switch fmt.Sprintf("%02x%02x", compr[0], compr[1]) {
	case "425a":
		return CompBzip2
	case "1f8b":
		return CompGzip
	case "1f9e":
		return CompGzip
	case "0422":
		return CompLz4
	case "894c":
		return CompLzo
	case "5d00":
		return CompLzma
	case "fd37":
		return CompXz
	default:
		return CompUnknown
	}
}

func unsupported(cMode int, stage string) error {
	return errorf(ErrCompression, stage, "ramdisk",
		"%s ramdisk compression is not supported", CompressorName(cMode))
}

// CompressRamdisk compresses the input ramdisk in a certain mode.
func CompressRamdisk(ramdisk []byte, cMode int) ([]byte, error) {
	const stage = "compress ramdisk"

	var buf bytes.Buffer
	var writer io.WriteCloser
	var err error

	switch cMode {
	case CompNone:
		return ramdisk, nil
	case CompGzip:
		writer, err = gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, newErr(ErrCompression, stage, "preparing to compress ramdisk", err)
		}
	case CompXz:
		cfg := xz.WriterConfig{CheckSum: xz.CRC32}
		writer, err = cfg.NewWriter(&buf)
		if err != nil {
			return nil, newErr(ErrCompression, stage, "preparing to compress ramdisk", err)
		}
	default:
		return nil, unsupported(cMode, stage)
	}

	if err = writeAll(writer, ramdisk); err != nil {
		return nil, newErr(ErrCompression, stage, "compressing ramdisk", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, newErr(ErrCompression, stage, "finishing up ramdisk compression", err)
	}

	return buf.Bytes(), nil
}

// ExtractRamdisk decompresses the provided ramdisk.
func ExtractRamdisk(compr []byte, cMode int) (ramdisk []byte, err error) {
	const stage = "extract ramdisk"

	var reader io.Reader
	switch cMode {
	case CompNone:
		return compr, nil
	case CompGzip:
		gReader, err := gzip.NewReader(bytes.NewReader(compr))
		if err != nil {
			return nil, newErr(ErrCompression, stage, "preparing to extract ramdisk", err)
		}
		defer gReader.Close()
		reader = gReader
	case CompXz:
		xReader, err := xz.NewReader(bytes.NewReader(compr))
		if err != nil {
			return nil, newErr(ErrCompression, stage, "preparing to extract ramdisk", err)
		}
		reader = xReader
	default:
		return nil, unsupported(cMode, stage)
	}

	ramdisk, err = io.ReadAll(reader)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errorf(ErrCompression, stage, "extracting ramdisk", "stream is truncated")
		}
		return nil, newErr(ErrCompression, stage, "extracting ramdisk", err)
	}

	return
}
