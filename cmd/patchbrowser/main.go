package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tsanders/patchbrowser/pkg/ux"
)

// buildVersion is set at build time with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

var (
	configPath   string
	logLevel     string
	patchesFeed  string
	softwareFeed string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		ux.PrintError("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "patchbrowser",
		Short: "Browse ArcGIS Enterprise patches and installers",
		Long: `patchbrowser fetches the ArcGIS patch feed and the installer spreadsheet,
normalizes them into uniform tables and lets you filter them from the
terminal, serve them as a local web page, or export a static snapshot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .patchbrowser.yaml in the current or home directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&patchesFeed, "patches-feed", "", "Patch feed URL or file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&softwareFeed, "software-feed", "", "Installer CSV URL or file (overrides config)")

	rootCmd.AddCommand(
		newPatchesCmd(),
		newSoftwareCmd(),
		newServeCmd(),
		newExportCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}
