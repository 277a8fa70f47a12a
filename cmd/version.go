package cmd

import (
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/magpie-ai/magpie/internal/config"
	"github.com/magpie-ai/magpie/internal/ui"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// printVersion writes the banner with version and configured backend. The
// backend falls back to the default when configuration cannot be loaded.
func printVersion(w io.Writer) {
	backend := config.DefaultBackendURL
	if cfg, err := config.Load(); err == nil {
		backend = cfg.BackendURL
	}
	ui.PrintBannerWithInfo(w, buildVersion(), backend)
}

// buildVersion prefers the ldflags version, falling back to module build
// info for go install builds.
func buildVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}
