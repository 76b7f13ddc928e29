package segment

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/kdrag0n/bootpack"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	stub := bytes.Repeat([]byte{0x00}, 512)
	fv := bytes.Repeat([]byte{0xAA}, 4096)

	set, err := Load(context.Background(),
		Source{Origin: bootpack.OriginStub, Path: writeFile(t, dir, "stub.bin", stub)},
		Source{Origin: bootpack.OriginFirmwareVolume, Path: writeFile(t, dir, "fv.fd", fv)},
		Source{Origin: bootpack.OriginRamdisk, Path: writeFile(t, dir, "ramdisk", nil)},
		Source{Origin: bootpack.OriginDeviceTree},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer set.Close()

	if got := set.Get(bootpack.OriginStub); !bytes.Equal(got.Data, stub) {
		t.Fatalf("stub mismatch: %d bytes", got.Len())
	}
	if got := set.Get(bootpack.OriginFirmwareVolume); !bytes.Equal(got.Data, fv) {
		t.Fatalf("firmware mismatch: %d bytes", got.Len())
	}
	if got := set.Get(bootpack.OriginRamdisk); got.Len() != 0 {
		t.Fatalf("expected empty ramdisk, got %d bytes", got.Len())
	}
	if got := set.Get(bootpack.OriginDeviceTree); got.Len() != 0 || got.Origin != bootpack.OriginDeviceTree {
		t.Fatalf("expected empty device tree, got %v", got)
	}
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(context.Background(),
		Source{Origin: bootpack.OriginStub, Path: writeFile(t, dir, "stub.bin", []byte{1})},
		Source{Origin: bootpack.OriginFirmwareVolume, Path: filepath.Join(dir, "missing.fd")},
	)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist cause, got %v", err)
	}
	if msgs := bootpack.GetErrors(err); len(msgs) != 2 || msgs[0] != "opening firmware-volume" {
		t.Fatalf("unexpected error parts %q", msgs)
	}
}

func TestLoadDirectory(t *testing.T) {
	_, err := Load(context.Background(), Source{Origin: bootpack.OriginRamdisk, Path: t.TempDir()})
	if err == nil {
		t.Fatalf("expected error for directory")
	}
}
