package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/kdrag0n/bootpack"
	"github.com/kdrag0n/bootpack/internal/segment"
)

// Names of the files Unpack writes.
const (
	KernelFile     = "kernel"
	RamdiskFile    = "ramdisk"
	PayloadFile    = "payload.bin"
	DeviceTreeFile = "device-tree.dtb"
	StubFile       = "stub.bin"
	FirmwareFile   = "firmware.fv"
	DtbFile        = "dtb"
)

type region struct {
	name string
	data []byte
}

// Report describes a decoded image.
type Report struct {
	Header   bootpack.Header
	Layout   bootpack.Layout
	Verified bool

	Payload    SegmentInfo
	Gzip       int
	Firmware   SegmentInfo
	DeviceTree SegmentInfo
	FDT        *bootpack.FDTHeader

	Ramdisk           SegmentInfo
	RamdiskCompressor string
}

// Inspect decodes the image at path and looks inside its payload.
func Inspect(ctx context.Context, path string) (*Report, error) {
	r, _, err := inspect(ctx, path)
	return r, err
}

type decoded struct {
	img     *bootpack.BootImage
	payload *bootpack.Payload
	raw     []byte
}

func inspect(ctx context.Context, path string) (*Report, *decoded, error) {
	set, err := segment.Load(ctx, segment.Source{Origin: "image", Path: path})
	if err != nil {
		return nil, nil, err
	}
	defer set.Close()

	data := set.Get("image").Data
	img, err := bootpack.Decode(data)
	if err != nil {
		return nil, nil, bootpack.WrapMsg(err, "decoding image")
	}

	r := &Report{
		Header:   img.Header,
		Layout:   img.Layout,
		Verified: img.Verify() == nil,
		Payload:  fingerprint("payload", img.Kernel),
		Ramdisk:  fingerprint(bootpack.OriginRamdisk, img.Ramdisk),
	}
	if len(img.Ramdisk) > 0 {
		r.RamdiskCompressor = bootpack.CompressorName(bootpack.DetectCompressor(img.Ramdisk))
	}

	payload, err := bootpack.PayloadFromBytes(img.Kernel)
	if err != nil {
		return nil, nil, bootpack.WrapMsg(err, "splitting payload")
	}
	raw, err := payload.Decompress()
	if err != nil {
		return nil, nil, bootpack.WrapMsg(err, "decompressing payload")
	}

	r.Gzip = payload.CompressedSize()
	r.Firmware = fingerprint("stub+"+bootpack.OriginFirmwareVolume, raw)
	r.DeviceTree = fingerprint(bootpack.OriginDeviceTree, payload.DeviceTree())
	if fdt, ok := bootpack.ProbeFDT(payload.DeviceTree()); ok {
		r.FDT = &fdt
	}

	klog.V(1).InfoS("Inspected image", "path", path, "verified", r.Verified, "header", img.Header.String())
	return r, &decoded{img: img, payload: payload, raw: raw}, nil
}

// Unpack writes the regions of the image at path into outDir. With a stub
// length, the decompressed payload is also split into stub and firmware volume.
func Unpack(ctx context.Context, path, outDir string, stubLen int, opts Options) (*Report, error) {
	opts.step("Extracting image")
	r, d, err := inspect(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, bootpack.WrapMsg(err, "creating output directory")
	}

	files := []region{
		{KernelFile, d.img.Kernel},
		{RamdiskFile, d.img.Ramdisk},
		{PayloadFile, d.raw},
		{DeviceTreeFile, d.payload.DeviceTree()},
	}
	if len(d.img.Dtb) > 0 {
		files = append(files, region{DtbFile, d.img.Dtb})
	}

	if stubLen > 0 {
		opts.step("Splitting firmware volume at 0x%x", stubLen)
		stub, fv, err := d.payload.Firmware(stubLen)
		if err != nil {
			return nil, bootpack.WrapMsg(err, "splitting firmware volume")
		}
		files = append(files, region{StubFile, stub}, region{FirmwareFile, fv})
	}

	opts.step("Writing regions")
	for _, f := range files {
		out := filepath.Join(outDir, f.name)
		if _, _, err := writeAtomic(out, bytes.NewReader(f.data)); err != nil {
			return nil, bootpack.WrapMsg(err, "writing "+f.name)
		}
		klog.V(2).InfoS("Wrote region", "path", out, "size", len(f.data))
	}

	return r, nil
}
