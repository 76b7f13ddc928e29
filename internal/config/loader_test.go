package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kdrag0n/bootpack"
)

var buildTime = time.Date(2025, time.March, 31, 23, 30, 0, 0, time.UTC)

func TestLoadBuild(t *testing.T) {
	path := filepath.Join("testdata", "build.yaml")
	b, err := Load(path, buildTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Build{
		Stub:       filepath.Join("testdata", "bin", "BootShim.bin"),
		Firmware:   filepath.Join("testdata", "fv", "S6_UEFI.fd"),
		DeviceTree: filepath.Join("testdata", "dtb", "s6.dtb"),
		Ramdisk:    "/abs/ramdisk",
		Output:     filepath.Join("testdata", "out", "boot.img"),
		Image: bootpack.Config{
			TagsOffset:    0x100,
			PageSize:      4096,
			HeaderVersion: 1,
			OSVersion:     bootpack.OSVersion{Major: 11},
			PatchLevel:    bootpack.PatchLevel{Year: 2024, Month: 5},
			Board:         "s6",
		},
		RamdiskCompression: bootpack.CompGzip,
		Stamp:              []bootpack.Replacement{{From: "BUILDID_Unknown", To: "BUILDID_2024051"}},
	}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Fatalf("build mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadBuildDefaultsAndToday(t *testing.T) {
	b, err := Load(filepath.Join("testdata", "build_today.yaml"), buildTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Image.PageSize != bootpack.DefaultPageSize {
		t.Fatalf("expected default page size, got %d", b.Image.PageSize)
	}
	if b.Image.HeaderVersion != bootpack.HeaderV0 {
		t.Fatalf("expected header version 0, got %d", b.Image.HeaderVersion)
	}
	if b.Ramdisk != "" {
		t.Fatalf("expected no ramdisk, got %q", b.Ramdisk)
	}
	if got, want := b.Image.PatchLevel, (bootpack.PatchLevel{Year: 2025, Month: 3}); got != want {
		t.Fatalf("patch level = %v, want %v", got, want)
	}
	if got, want := b.Image.OSVersion, (bootpack.OSVersion{Major: 13}); got != want {
		t.Fatalf("os version = %v, want %v", got, want)
	}
}

func TestLoadBuildInvalidAddress(t *testing.T) {
	path := filepath.Join("testdata", "build_invalid.yaml")
	_, err := Load(path, buildTime)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, bootpack.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	if !strings.Contains(err.Error(), "image.tags_offset") {
		t.Fatalf("expected field in error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected path in error, got %v", err)
	}
}

func TestLoadBuildBadStamp(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "build_bad_stamp.yaml"), buildTime)
	if err == nil || !strings.Contains(err.Error(), "stamp[0]") {
		t.Fatalf("expected stamp error, got %v", err)
	}
}

func TestLoadBuildBrokenYAML(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "build_broken.yaml"), buildTime)
	if !errors.Is(err, bootpack.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestLoadBuildMissing(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "nope.yaml"), buildTime)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	var oe *OpError
	if !errors.As(err, &oe) || oe.Op != "config.load" {
		t.Fatalf("expected OpError from config.load, got %#v", err)
	}
}

func TestParseAddress(t *testing.T) {
	cases := map[string]uint64{
		"0":          0,
		"0x8000":     0x8000,
		"0x10000000": 0x10000000,
		" 256 ":      256,
	}
	for in, want := range cases {
		got, err := ParseAddress(in)
		if err != nil {
			t.Fatalf("ParseAddress(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseAddress(%q) = 0x%x, want 0x%x", in, got, want)
		}
	}
}
