package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kdrag0n/bootpack"
)

// PatchLevelToday selects the build date as patch level.
const PatchLevelToday = "today"

// MapBuild turns the YAML form into a Build on top of Defaults.
func MapBuild(path string, yb YAMLBuild, now time.Time) (Build, error) {
	b := Defaults()
	dir := filepath.Dir(path)

	b.Stub = resolve(dir, yb.Inputs.Stub)
	b.Firmware = resolve(dir, yb.Inputs.Firmware)
	b.DeviceTree = resolve(dir, yb.Inputs.DeviceTree)
	b.Ramdisk = resolve(dir, yb.Inputs.Ramdisk)
	b.Output = resolve(dir, yb.Output)

	img := &b.Image
	addrs := []struct {
		dst   *uint64
		value string
		field string
	}{
		{&img.Base, yb.Image.Base, "image.base"},
		{&img.KernelOffset, yb.Image.KernelOffset, "image.kernel_offset"},
		{&img.RamdiskOffset, yb.Image.RamdiskOffset, "image.ramdisk_offset"},
		{&img.SecondOffset, yb.Image.SecondOffset, "image.second_offset"},
		{&img.TagsOffset, yb.Image.TagsOffset, "image.tags_offset"},
		{&img.DtbOffset, yb.Image.DtbOffset, "image.dtb_offset"},
	}
	for _, a := range addrs {
		if strings.TrimSpace(a.value) == "" {
			continue
		}
		v, err := ParseAddress(a.value)
		if err != nil {
			return Build{}, invalidField(path, a.field, err.Error())
		}
		*a.dst = v
	}

	if yb.Image.PageSize != nil {
		img.PageSize = *yb.Image.PageSize
	}
	if yb.Image.HeaderVersion != nil {
		img.HeaderVersion = *yb.Image.HeaderVersion
	}

	if s := strings.TrimSpace(yb.Image.OSVersion); s != "" {
		v, err := bootpack.ParseOSVersion(s)
		if err != nil {
			return Build{}, invalidField(path, "image.os_version", err.Error())
		}
		img.OSVersion = v
	}

	if s := strings.TrimSpace(yb.Image.OSPatchLevel); s != "" {
		p, err := ParsePatchLevel(s, now)
		if err != nil {
			return Build{}, invalidField(path, "image.os_patch_level", err.Error())
		}
		img.PatchLevel = p
	}

	img.Board = yb.Image.Board
	img.Cmdline = yb.Image.Cmdline

	if yb.RamdiskCompression != "" {
		mode, err := bootpack.ParseCompressor(yb.RamdiskCompression)
		if err != nil {
			return Build{}, invalidField(path, "ramdisk_compression", err.Error())
		}
		b.RamdiskCompression = mode
	}

	for i, r := range yb.Stamp {
		if len(r.From) == 0 || len(r.From) != len(r.To) {
			return Build{}, invalidField(path, fmt.Sprintf("stamp[%d]", i),
				fmt.Sprintf("from and to must be non-empty and equal length, got %d and %d", len(r.From), len(r.To)))
		}
		b.Stamp = append(b.Stamp, bootpack.Replacement{From: r.From, To: r.To})
	}

	return b, nil
}

// ParseAddress accepts decimal, 0x hex and 0 octal numbers.
func ParseAddress(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 0, 64)
}

// ParsePatchLevel accepts "YYYY-MM" or "today".
func ParsePatchLevel(s string, now time.Time) (bootpack.PatchLevel, error) {
	if strings.EqualFold(strings.TrimSpace(s), PatchLevelToday) {
		return bootpack.PatchLevelFromTime(now), nil
	}

	return bootpack.ParsePatchLevel(s)
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(dir, p)
}

func invalidField(path, field, msg string) error {
	return &OpError{
		Op:   "config.map",
		Path: path,
		Err:  fmt.Errorf("field %s: %s: %w", field, msg, bootpack.ErrInvalidConfig),
	}
}
