package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsanders/patchbrowser/pkg/ux"
	"github.com/tsanders/patchbrowser/pkg/web"
)

func newServeCmd() *cobra.Command {
	var (
		addr string
		open bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the patch and installer tables on a local web page",
		Long: `Start a local web server with the menu, patch and software pages.

Both feeds are loaded on startup. Use the reload API or the page controls to
fetch fresh data; connected pages refresh when a reload lands.`,
		Example: `  patchbrowser serve
  patchbrowser serve --addr localhost:9090 --open=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("open") {
				a.cfg.Server.OpenBrowser = open
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			spinner := ux.NewSpinner("Loading feeds...", spinnerWriter(formatTable))
			spinner.Start()
			err = a.controller.LoadAll(ctx)
			spinner.Stop()
			if err != nil {
				// The server still starts; the pages show the failure.
				a.log.Warn("initial load failed", zap.Error(err))
				ux.PrintWarning("Initial load failed: %v", err)
			}

			server, err := web.NewServer(a.controller, web.Options{
				Addr:        a.cfg.Server.Addr,
				RenderLimit: a.cfg.Display.RenderLimit,
				SoftwareURL: a.cfg.Feeds.Software,
				Logger:      a.log,
			})
			if err != nil {
				return err
			}

			ux.PrintSuccess("Serving on http://%s (Ctrl+C to stop)", server.Addr())
			return server.Start(ctx, a.cfg.Server.OpenBrowser)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&open, "open", true, "Open the browser once the server is up (overrides server.open-browser)")
	return cmd
}
