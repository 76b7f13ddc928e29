package main

import (
	goflag "flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// General command-line interface constants
const (
	defaultConfig = "bootpack.yaml"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		reportError(os.Stdout, err)
		klog.Flush()
		os.Exit(2)
	}
	klog.Flush()
}

func newRootCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "bootpack",
		Short: "Pack a UEFI firmware volume into an Android boot image",
		Long: `bootpack prepends a bootstrap shim to a firmware volume, gzips the result,
appends the device tree and wraps it all in an Android boot image the stock
bootloader can load.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !quiet && interactive() {
				fmt.Fprintf(cmd.OutOrStdout(), "bootpack\nAndroid boot image packer for UEFI payloads\n\n")
			}
		},
	}

	klogFlags := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress lines.")

	cmd.AddCommand(newBuildCmd(&quiet), newUnpackCmd(&quiet), newInfoCmd())
	return cmd
}
