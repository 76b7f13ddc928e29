package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kdrag0n/bootpack/internal/pipeline"
)

func newUnpackCmd(quiet *bool) *cobra.Command {
	var outDir string
	var stubSize int

	cmd := &cobra.Command{
		Use:   "unpack <image>",
		Short: "Extract the regions of a boot image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			if outDir == "" {
				ext := filepath.Ext(inputPath)
				base := filepath.Base(inputPath)
				dir, _ := filepath.Split(inputPath)

				outDir = filepath.Join(dir, strings.TrimSuffix(base, ext)+"-unpacked")
			}

			out := cmd.OutOrStdout()
			r, err := pipeline.Unpack(cmd.Context(), inputPath, outDir, stubSize, pipeline.Options{Progress: progress(out, *quiet)})
			if err != nil {
				return err
			}

			printReport(out, r)
			fmt.Fprintf(out, " - Finished! Regions are in '%s'.\n", outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "dir", "d", "", "Directory to write regions to.")
	cmd.Flags().IntVar(&stubSize, "stub-size", 0, "Length of the shim; also writes the stub and firmware volume.")
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <image>",
		Short: "Describe a boot image and its payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := pipeline.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func printReport(out io.Writer, r *pipeline.Report) {
	h := &r.Header
	fmt.Fprintf(out, "header version    %d\n", h.Version)
	fmt.Fprintf(out, "page size         %d\n", h.PageSize)
	fmt.Fprintf(out, "os version        %s\n", h.OSVersion)
	fmt.Fprintf(out, "os patch level    %s\n", h.Patch)
	fmt.Fprintf(out, "board             %q\n", h.Board)
	fmt.Fprintf(out, "cmdline           %q\n", h.Cmdline)
	fmt.Fprintf(out, "kernel            %d bytes at 0x%x, load 0x%08x\n", h.KernelSize, r.Layout.Kernel, h.KernelAddr)
	fmt.Fprintf(out, "ramdisk           %d bytes at 0x%x, load 0x%08x", h.RamdiskSize, r.Layout.Ramdisk, h.RamdiskAddr)
	if r.RamdiskCompressor != "" {
		fmt.Fprintf(out, " (%s)", r.RamdiskCompressor)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "tags              0x%08x\n", h.TagsAddr)
	if h.Version >= 2 {
		fmt.Fprintf(out, "dtb               %d bytes at 0x%x, load 0x%x\n", h.DtbSize, r.Layout.Dtb, h.DtbAddr)
	}
	fmt.Fprintf(out, "id                %x (verified: %t)\n", h.ID[:20], r.Verified)
	fmt.Fprintf(out, "payload gzip      %d bytes -> %d bytes, xxh64 %016x\n", r.Gzip, r.Firmware.Size, r.Firmware.Fingerprint)
	fmt.Fprintf(out, "device tree       %d bytes, xxh64 %016x", r.DeviceTree.Size, r.DeviceTree.Fingerprint)
	if r.FDT != nil {
		fmt.Fprintf(out, " (FDT v%d, %d bytes)", r.FDT.Version, r.FDT.TotalSize)
	}
	fmt.Fprintln(out)
}
