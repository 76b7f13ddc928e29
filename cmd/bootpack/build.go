package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/kdrag0n/bootpack"
	"github.com/kdrag0n/bootpack/internal/config"
	"github.com/kdrag0n/bootpack/internal/pipeline"
)

// buildFlags mirrors the build file so any field can be overridden.
type buildFlags struct {
	configPath string

	stub, firmware, dtb, ramdisk, output string

	base, kernelOffset, ramdiskOffset, secondOffset, tagsOffset, dtbOffset string

	pageSize      uint32
	headerVersion uint32
	osVersion     string
	patchLevel    string
	board         string
	cmdline       string
	compression   string
}

func (f *buildFlags) register(fs *flag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to the build file (default "+defaultConfig+" if present).")

	fs.StringVar(&f.stub, "stub", "", "Path to the bootstrap shim.")
	fs.StringVar(&f.firmware, "firmware", "", "Path to the firmware volume.")
	fs.StringVar(&f.dtb, "dtb", "", "Path to the device tree blob.")
	fs.StringVar(&f.ramdisk, "ramdisk", "", "Path to the ramdisk (may be empty).")
	fs.StringVarP(&f.output, "output", "o", "", "Path to output the boot image to.")

	fs.StringVar(&f.base, "base", "", "Base address added to every offset.")
	fs.StringVar(&f.kernelOffset, "kernel-offset", "", "Kernel load offset.")
	fs.StringVar(&f.ramdiskOffset, "ramdisk-offset", "", "Ramdisk load offset.")
	fs.StringVar(&f.secondOffset, "second-offset", "", "Second stage load offset.")
	fs.StringVar(&f.tagsOffset, "tags-offset", "", "Kernel tags offset.")
	fs.StringVar(&f.dtbOffset, "dtb-offset", "", "DTB load offset (header version 2).")

	fs.Uint32Var(&f.pageSize, "pagesize", bootpack.DefaultPageSize, "Flash page size.")
	fs.Uint32Var(&f.headerVersion, "header-version", bootpack.HeaderV0, "Boot image header version (0-2).")
	fs.StringVar(&f.osVersion, "os-version", "", "OS version, A.B.C.")
	fs.StringVar(&f.patchLevel, "os-patch-level", "", "Security patch level, YYYY-MM or 'today'.")
	fs.StringVar(&f.board, "board", "", "Board name.")
	fs.StringVar(&f.cmdline, "cmdline", "", "Kernel command line.")
	fs.StringVar(&f.compression, "ramdisk-compression", "", "Compress the ramdisk: none, gzip or xz.")
}

// resolve loads the build file, if any, and applies every flag that was set.
func (f *buildFlags) resolve(fs *flag.FlagSet, now time.Time) (config.Build, error) {
	b := config.Defaults()

	path := f.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfig); err == nil {
			path = defaultConfig
		}
	}
	if path != "" {
		loaded, err := config.Load(path, now)
		if err != nil {
			return b, bootpack.WrapMsg(err, "loading build file")
		}
		b = loaded
	}

	strs := []struct {
		name string
		dst  *string
		src  string
	}{
		{"stub", &b.Stub, f.stub},
		{"firmware", &b.Firmware, f.firmware},
		{"dtb", &b.DeviceTree, f.dtb},
		{"ramdisk", &b.Ramdisk, f.ramdisk},
		{"output", &b.Output, f.output},
		{"board", &b.Image.Board, f.board},
		{"cmdline", &b.Image.Cmdline, f.cmdline},
	}
	for _, s := range strs {
		if fs.Changed(s.name) {
			*s.dst = s.src
		}
	}

	addrs := []struct {
		name string
		dst  *uint64
		src  string
	}{
		{"base", &b.Image.Base, f.base},
		{"kernel-offset", &b.Image.KernelOffset, f.kernelOffset},
		{"ramdisk-offset", &b.Image.RamdiskOffset, f.ramdiskOffset},
		{"second-offset", &b.Image.SecondOffset, f.secondOffset},
		{"tags-offset", &b.Image.TagsOffset, f.tagsOffset},
		{"dtb-offset", &b.Image.DtbOffset, f.dtbOffset},
	}
	for _, a := range addrs {
		if !fs.Changed(a.name) {
			continue
		}
		v, err := config.ParseAddress(a.src)
		if err != nil {
			return b, bootpack.WrapMsg(fmt.Errorf("%w: --%s: %v", bootpack.ErrInvalidConfig, a.name, err), "parsing flags")
		}
		*a.dst = v
	}

	if fs.Changed("pagesize") {
		b.Image.PageSize = f.pageSize
	}
	if fs.Changed("header-version") {
		b.Image.HeaderVersion = f.headerVersion
	}
	if fs.Changed("os-version") {
		v, err := bootpack.ParseOSVersion(f.osVersion)
		if err != nil {
			return b, bootpack.WrapMsg(err, "parsing flags")
		}
		b.Image.OSVersion = v
	}
	if fs.Changed("os-patch-level") {
		p, err := config.ParsePatchLevel(f.patchLevel, now)
		if err != nil {
			return b, bootpack.WrapMsg(err, "parsing flags")
		}
		b.Image.PatchLevel = p
	}
	if fs.Changed("ramdisk-compression") {
		mode, err := bootpack.ParseCompressor(f.compression)
		if err != nil {
			return b, bootpack.WrapMsg(err, "parsing flags")
		}
		b.RamdiskCompression = mode
	}

	if b.Stub == "" || b.Firmware == "" || b.DeviceTree == "" || b.Output == "" {
		return b, bootpack.WrapMsg(errors.New("--stub, --firmware, --dtb and --output are required"), "checking inputs")
	}

	return b, nil
}

func newBuildCmd(quiet *bool) *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble the payload and write a boot image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := f.resolve(cmd.Flags(), time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			m, err := pipeline.Build(cmd.Context(), b, pipeline.Options{Progress: progress(out, *quiet)})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, " - Finished! Output is '%s' (%d bytes, %s).\n", m.Output, m.Size, m.Header.String())
			return nil
		},
	}

	f.register(cmd.Flags())
	return cmd
}
