package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsanders/patchbrowser/pkg/feed"
	"github.com/tsanders/patchbrowser/pkg/software"
	"github.com/tsanders/patchbrowser/pkg/ux"
)

func newSoftwareCmd() *cobra.Command {
	var (
		query   software.Query
		format  string
		options bool
	)

	cmd := &cobra.Command{
		Use:   "software",
		Short: "List installers from the software sheet",
		Example: `  patchbrowser software --version 11.3 --component Portal
  patchbrowser software -q linux --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			spinner := ux.NewSpinner("Loading software list...", spinnerWriter(format))
			spinner.Start()
			err = a.controller.ReloadSoftware(cmd.Context())
			spinner.Stop()
			if err != nil {
				return feed.Explain(feed.Software, err)
			}

			all := a.controller.State().Software()
			out := cmd.OutOrStdout()

			if options {
				fmt.Fprintf(out, "Versions:   %s\n", strings.Join(software.Versions(all), ", "))
				fmt.Fprintf(out, "Components: %s\n", strings.Join(software.Components(all), ", "))
				return nil
			}

			rows := query.Apply(all)
			if rows == nil {
				rows = []software.Row{}
			}
			if err := writeRows(out, format, rows, softwareTable(rows)); err != nil {
				return err
			}
			if format == formatTable {
				fmt.Fprintln(out)
				ux.PrintInfo("Items: %d of %d", len(rows), len(all))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "Output format: table, json, yaml")
	cmd.Flags().BoolVar(&options, "options", false, "List the versions and components present in the sheet")
	cmd.Flags().AddFlagSet(softwareFilterFlags(&query))
	return cmd
}
