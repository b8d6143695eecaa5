package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/report"
	"github.com/tsanders/patchbrowser/pkg/software"
	"github.com/tsanders/patchbrowser/pkg/ux"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// nameWidth caps the patch name column of table output.
const nameWidth = 70

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q: use table, json or yaml", format)
}

// writeRows writes rows as JSON or YAML, or table as aligned text.
func writeRows(w io.Writer, format string, rows interface{}, table [][]string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case formatTable, "":
		ux.PrintTable(w, table)
		return nil
	}
	return validateFormat(format)
}

// patchFilterFlags binds the patch query flags.
func patchFilterFlags(q *patch.Query) *pflag.FlagSet {
	fs := pflag.NewFlagSet("patch filters", pflag.ContinueOnError)
	fs.StringVarP(&q.Text, "q", "q", "", "Case-insensitive text search over all columns")
	fs.StringVar(&q.Component, "component", "", "Component, e.g. \"ArcGIS Server\" or Portal")
	fs.StringVar(&q.Security, "security", "", "Security patches only (Y) or non-security only (N)")
	fs.IntVar(&q.Limit, "limit", 0, fmt.Sprintf("Maximum rows (default display.render-limit; 0 = %d, -1 = no limit)", patch.RenderLimit))
	return fs
}

// softwareFilterFlags binds the installer query flags.
func softwareFilterFlags(q *software.Query) *pflag.FlagSet {
	fs := pflag.NewFlagSet("software filters", pflag.ContinueOnError)
	fs.StringVar(&q.Version, "version", "", "Exact version, e.g. 11.3 or Unknown")
	fs.StringVar(&q.Component, "component", "", "Exact component, e.g. Portal")
	fs.StringVarP(&q.Text, "q", "q", "", "Case-insensitive filename search")
	return fs
}

// sheetKey accepts either a sheet key (v11_2, All_Enterprise) or a dotted
// version (11.2).
func sheetKey(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "", strings.EqualFold(s, "all"):
		return patch.AllSheet
	case s == patch.AllSheet, strings.HasPrefix(s, "v"):
		return s
	}
	return patch.SheetKey(s)
}

// patchOutput is a patch row as printed by the CLI.
type patchOutput struct {
	Released    string   `json:"released" yaml:"released"`
	Component   string   `json:"component" yaml:"component"`
	Security    string   `json:"security" yaml:"security"`
	PatchName   string   `json:"patchName" yaml:"patchName"`
	Version     string   `json:"version,omitempty" yaml:"version,omitempty"`
	SupportURL  string   `json:"supportUrl,omitempty" yaml:"supportUrl,omitempty"`
	DownloadURL string   `json:"downloadUrl,omitempty" yaml:"downloadUrl,omitempty"`
	PatchFiles  []string `json:"patchFiles,omitempty" yaml:"patchFiles,omitempty"`
}

func patchOutputs(rows []patch.PatchRow, activeSheet string) []patchOutput {
	out := make([]patchOutput, 0, len(rows))
	for _, row := range rows {
		view := report.NewPatchRowView(row, activeSheet)
		out = append(out, patchOutput{
			Released:    row.Released,
			Component:   row.Component,
			Security:    row.SecurityFlag(),
			PatchName:   row.PatchName,
			Version:     row.Version,
			SupportURL:  view.SupportURL,
			DownloadURL: view.DownloadURL,
			PatchFiles:  row.PatchFiles,
		})
	}
	return out
}

func patchTable(rows []patchOutput) [][]string {
	table := [][]string{{"Released", "Component", "Security", "Patch Name", "Download"}}
	for _, r := range rows {
		dl := r.DownloadURL
		if dl == "" {
			dl = ux.Dim("Direct DL N/A")
		}
		table = append(table, []string{
			r.Released,
			r.Component,
			ux.FormatSecurity(r.Security),
			ux.Truncate(r.PatchName, nameWidth),
			dl,
		})
	}
	return table
}

func softwareTable(rows []software.Row) [][]string {
	table := [][]string{{"Version", "Component", "Filename", "Size (GB)", "Download"}}
	for _, r := range rows {
		table = append(table, []string{
			r.DisplayVersion(),
			r.Component,
			r.Filename,
			r.SizeGB,
			r.DirectURL,
		})
	}
	return table
}

// spinnerWriter shows spinners only for interactive table output.
func spinnerWriter(format string) io.Writer {
	if format == formatTable && ux.IsTerminal() {
		return os.Stderr
	}
	return nil
}
