package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version info (set by build)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "sail",
	Short: "Unattended Arch Linux on ZFS installer",
	Long: `sail installs Arch Linux with root on ZFS from a live environment.

It appends an EFI system partition, a boot pool and a root pool to the
configured disk, bootstraps the system with pacstrap, installs GRUB on every
ESP and leaves the pools exported and ready to boot.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "sail.toml", "configuration file")

	rootCmd.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newListCmd(),
		newExecCmd(),
		newVersionCmd(),
		newCompletionCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
