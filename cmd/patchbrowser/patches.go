package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsanders/patchbrowser/pkg/feed"
	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/ux"
)

func newPatchesCmd() *cobra.Command {
	var (
		query      patch.Query
		sheet      string
		format     string
		listSheets bool
	)

	cmd := &cobra.Command{
		Use:   "patches",
		Short: "List patches from the patch feed",
		Example: `  patchbrowser patches --sheet 11.2 --security Y
  patchbrowser patches -q "map viewer" --component Portal --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if !cmd.Flags().Changed("limit") {
				query.Limit = a.cfg.Display.RenderLimit
			}

			spinner := ux.NewSpinner("Loading patches...", spinnerWriter(format))
			spinner.Start()
			err = a.controller.ReloadPatches(cmd.Context(), true)
			spinner.Stop()
			if err != nil {
				return feed.Explain(feed.Patches, err)
			}

			state := a.controller.State()
			sheets := state.Sheets()
			out := cmd.OutOrStdout()

			if listSheets {
				ux.PrintHeader("Sheets")
				table := [][]string{{"Sheet", "Label", "Rows"}}
				for _, key := range sheets.Keys() {
					table = append(table, []string{key, patch.SheetLabel(key), fmt.Sprint(len(sheets[key].Rows))})
				}
				ux.PrintTable(out, table)
				return nil
			}

			key := sheetKey(sheet)
			active := state.SelectSheet(key)
			if active != key && format == formatTable {
				ux.PrintWarning("Sheet %s not found, showing %s", key, patch.SheetLabel(active))
			}

			res := query.Apply(sheets.Sheet(active))
			rows := patchOutputs(res.Rows, active)
			if err := writeRows(out, format, rows, patchTable(rows)); err != nil {
				return err
			}
			if format == formatTable {
				fmt.Fprintln(out)
				ux.PrintInfo("%s: %s", patch.SheetLabel(active), ux.FormatCount(len(res.Rows), res.Total))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", patch.AllSheet, "Sheet key or version, e.g. v11_2 or 11.2")
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "Output format: table, json, yaml")
	cmd.Flags().BoolVar(&listSheets, "sheets", false, "List available sheets instead of rows")
	cmd.Flags().AddFlagSet(patchFilterFlags(&query))
	return cmd
}
