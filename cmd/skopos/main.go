package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/unitexe/skopos/internal/cli"
)

var ctx = cli.NewGlobalContext()

func main() {
	err := rootCmd.Execute()
	ctx.Close()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skopos",
	Short: "Skopos - load container images from removable media",
	Long: `Skopos bridges removable media and a local container registry.

It lists removable block devices, mounts them, finds container image
archives on them, verifies their sha256 checksums and copies them into
a registry with skopeo. Run "skopos serve" to expose the same operations
over gRPC, or pass --server to drive a remote instance.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctx.Init()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&ctx.Verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&ctx.Quiet, "quiet", "q", false, "Quiet mode (suppress non-error output)")
	rootCmd.PersistentFlags().BoolVar(&ctx.NoColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().BoolVar(&ctx.Debug, "debug", false, "Debug mode (log capabilities and requests)")
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigPath, "config", "c", "", "Config file (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().StringVarP(&ctx.Server, "server", "s", "", "Run operations on a skopos server (host:port)")

	rootCmd.AddCommand(cli.NewServeCommand(ctx))
	rootCmd.AddCommand(cli.NewDevicesCommand(ctx))
	rootCmd.AddCommand(cli.NewMountCommand(ctx))
	rootCmd.AddCommand(cli.NewUnmountCommand(ctx))
	rootCmd.AddCommand(cli.NewArchivesCommand(ctx))
	rootCmd.AddCommand(cli.NewLoadCommand(ctx))
	rootCmd.AddCommand(cli.NewInspectCommand(ctx))

	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
