package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsanders/patchbrowser/pkg/browser"
	"github.com/tsanders/patchbrowser/pkg/feed"
	"github.com/tsanders/patchbrowser/pkg/report"
	"github.com/tsanders/patchbrowser/pkg/ux"
)

func newExportCmd() *cobra.Command {
	var (
		outDir string
		sheet  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a static HTML snapshot of both tables",
		Long: `Load both feeds and write index.html, patches.html and software.html.

The patch page holds every row of the selected sheet. A feed that fails to
load is exported empty with its error shown on the index page.`,
		Example: `  patchbrowser export --out ./site --sheet 11.3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			start := time.Now()

			spinner := ux.NewSpinner("Loading feeds...", spinnerWriter(formatTable))
			spinner.Start()
			loadErr := a.controller.LoadAll(cmd.Context())
			spinner.Stop()

			state := a.controller.State()
			if loadErr != nil {
				a.log.Warn("feed load failed", zap.Error(loadErr))
				if state.Sheets().RowCount() == 0 && len(state.Software()) == 0 {
					return fmt.Errorf("nothing to export: %w", loadErr)
				}
				ux.PrintWarning("%v", loadErr)
			}

			snap := report.Snapshot{
				Sheets:      state.Sheets(),
				ActiveSheet: state.SelectSheet(sheetKey(sheet)),
				Software:    state.Software(),
				Feeds:       snapshotFeeds(state),
			}

			bar := ux.NewProgressBar(3, "Writing pages")
			written, err := report.WriteSnapshot(outDir, snap, func(string) { _ = bar.Add(1) })
			_ = bar.Finish()
			if err != nil {
				return err
			}

			ux.PrintSection("Exported files")
			for _, path := range written {
				ux.PrintSuccess("Wrote %s", path)
			}
			ux.PrintInfo("Done in %s", ux.FormatDuration(time.Since(start)))
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "patchbrowser-export", "Output directory")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet key or version for the patch page (default: all versions)")
	return cmd
}

// snapshotFeeds summarizes both feeds for the index page. WriteSnapshot
// points the links at the exported files.
func snapshotFeeds(state *browser.State) []report.FeedSummary {
	summary := func(label string, rows int, st browser.FeedStatus) report.FeedSummary {
		return report.FeedSummary{Label: label, Message: st.Message, Rows: rows, Error: st.Error != ""}
	}
	return []report.FeedSummary{
		summary("Patches", state.Sheets().RowCount(), state.Status(feed.Patches)),
		summary("Software", len(state.Software()), state.Status(feed.Software)),
	}
}
