// Package pipeline runs the bootpack stages against files on disk.
package pipeline

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash"
	"k8s.io/klog/v2"

	"github.com/kdrag0n/bootpack"
	"github.com/kdrag0n/bootpack/internal/config"
	"github.com/kdrag0n/bootpack/internal/segment"
)

// Options tunes how a pipeline reports progress.
type Options struct {
	// Progress receives one short line per stage, e.g. for a terminal.
	Progress func(step string)
}

func (o Options) step(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	klog.V(1).InfoS("Stage", "step", msg)
	if o.Progress != nil {
		o.Progress(msg)
	}
}

// SegmentInfo describes one region of a build.
type SegmentInfo struct {
	Origin      string
	Size        int
	Fingerprint uint64
}

// Manifest records what a build produced.
type Manifest struct {
	Output   string
	Size     int64
	Header   bootpack.Header
	Layout   bootpack.Layout
	Inputs   []SegmentInfo
	Payload  SegmentInfo
	Gzip     int
	Ramdisk  SegmentInfo
	Checksum uint64
}

func fingerprint(origin string, data []byte) SegmentInfo {
	return SegmentInfo{Origin: origin, Size: len(data), Fingerprint: xxhash.Sum64(data)}
}

// Build loads the inputs, assembles the payload, encodes the image and writes
// it atomically. A failure at any stage leaves no output file behind.
func Build(ctx context.Context, b config.Build, opts Options) (*Manifest, error) {
	if b.Output == "" {
		return nil, bootpack.WrapMsg(fmt.Errorf("%w: no output path", bootpack.ErrInvalidConfig), "checking build")
	}

	opts.step("Reading inputs")
	set, err := segment.Load(ctx,
		segment.Source{Origin: bootpack.OriginStub, Path: b.Stub},
		segment.Source{Origin: bootpack.OriginFirmwareVolume, Path: b.Firmware},
		segment.Source{Origin: bootpack.OriginDeviceTree, Path: b.DeviceTree},
		segment.Source{Origin: bootpack.OriginRamdisk, Path: b.Ramdisk},
	)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	// Everything below runs in order; segment order is part of the format.
	stub := set.Get(bootpack.OriginStub)
	fv := set.Get(bootpack.OriginFirmwareVolume)
	dt := set.Get(bootpack.OriginDeviceTree)
	ramdisk := set.Get(bootpack.OriginRamdisk)

	m := &Manifest{
		Output: b.Output,
		Inputs: []SegmentInfo{
			fingerprint(stub.Origin, stub.Data),
			fingerprint(fv.Origin, fv.Data),
			fingerprint(dt.Origin, dt.Data),
			fingerprint(ramdisk.Origin, ramdisk.Data),
		},
	}

	if len(b.Stamp) > 0 {
		opts.step("Stamping firmware volume")
		fv, err = bootpack.Stamp(fv, b.Stamp, bootpack.ReplNormal)
		if err != nil {
			return nil, bootpack.WrapMsg(err, "stamping firmware volume")
		}
	}

	opts.step("Assembling payload")
	payload, err := bootpack.Assemble(stub, fv, dt)
	if err != nil {
		return nil, bootpack.WrapMsg(err, "assembling payload")
	}
	m.Payload = fingerprint("payload", payload.Bytes())
	m.Gzip = payload.CompressedSize()
	klog.InfoS("Assembled payload", "stub", stub.Len(), "firmware", fv.Len(),
		"compressed", payload.CompressedSize(), "deviceTree", dt.Len())

	if b.RamdiskCompression != bootpack.CompNone && ramdisk.Len() > 0 {
		opts.step("Compressing ramdisk (%s)", bootpack.CompressorName(b.RamdiskCompression))
		data, err := bootpack.CompressRamdisk(ramdisk.Data, b.RamdiskCompression)
		if err != nil {
			return nil, bootpack.WrapMsg(err, "compressing ramdisk")
		}
		ramdisk = bootpack.NewSegment(ramdisk.Origin, data)
	}
	m.Ramdisk = fingerprint(ramdisk.Origin, ramdisk.Data)

	opts.step("Encoding boot image")
	img, err := bootpack.Encode(payload, ramdisk, b.Image)
	if err != nil {
		return nil, bootpack.WrapMsg(err, "encoding boot image")
	}
	m.Header = img.Header
	m.Layout = img.Layout

	opts.step("Writing image")
	size, sum, err := writeAtomic(b.Output, img)
	if err != nil {
		return nil, bootpack.WrapMsg(err, "writing output file")
	}
	m.Size = size
	m.Checksum = sum

	klog.InfoS("Wrote boot image", "path", b.Output, "size", size, "header", img.Header.String())
	return m, nil
}
