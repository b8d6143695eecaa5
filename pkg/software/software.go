// Package software builds the installer download table from the published
// spreadsheet export.
package software

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tsanders/patchbrowser/pkg/csvparse"
	"github.com/tsanders/patchbrowser/pkg/inference"
	"github.com/tsanders/patchbrowser/pkg/version"
)

// Header names looked up in the first CSV row.
const (
	HeaderFolderPath  = "Folder Path"
	HeaderFilename    = "Filename"
	HeaderSize        = "Size (GB)"
	HeaderDirect      = "Direct Download"
	HeaderWebView     = "Web View"
	HeaderLastUpdated = "Last Updated"
)

// ProductPrefixes lists the filename prefixes of installers kept in the table.
var ProductPrefixes = []string{"ArcGIS", "Portal"}

// Row is one installer.
type Row struct {
	Version    string `json:"version" yaml:"version"` // never empty; version.Unknown when not inferred
	Component  string `json:"component" yaml:"component"`
	Filename   string `json:"filename" yaml:"filename"`
	FolderPath string `json:"folderPath" yaml:"folder_path"`
	SizeGB     string `json:"sizeGB" yaml:"size_gb"`
	DirectURL  string `json:"directUrl" yaml:"direct_url"`
	ViewURL    string `json:"viewUrl" yaml:"view_url"`
	UpdatedAt  string `json:"updatedAt" yaml:"updated_at"`
}

// DisplayVersion renders Unknown as a dash for tables.
func (r Row) DisplayVersion() string {
	if r.Version == version.Unknown {
		return "—"
	}
	return r.Version
}

// HeaderError is returned when the CSV header lacks a required column. It
// fails the whole feed.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("CSV header missing required columns: %s", strings.Join(quoteAll(e.Missing), " and "))
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = "'" + s + "'"
	}
	return out
}

// FromCSV parses the spreadsheet export and builds installer rows.
func FromCSV(text string) ([]Row, error) {
	return FromRecords(csvparse.Parse(text))
}

// FromRecords builds installer rows from parsed CSV records, the first of
// which is the header. Filename and Direct Download columns are required.
func FromRecords(records [][]string) ([]Row, error) {
	var header []string
	if len(records) > 0 {
		header = records[0]
	}
	idx := indexHeader(header)

	var missing []string
	for _, required := range []string{HeaderFilename, HeaderDirect} {
		if idx[required] < 0 {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing}
	}

	var rows []Row
	for _, rec := range records[1:] {
		filename := strings.TrimSpace(cell(rec, idx[HeaderFilename]))
		if filename == "" || !hasProductPrefix(filename) {
			continue
		}
		folder := cell(rec, idx[HeaderFolderPath])
		component := inference.InferComponent(filename, folder)
		v := inference.InferVersion(filename, folder, component)
		if v == "" {
			v = version.Unknown
		}
		rows = append(rows, Row{
			Version:    v,
			Component:  component,
			Filename:   filename,
			FolderPath: folder,
			SizeGB:     cell(rec, idx[HeaderSize]),
			DirectURL:  cell(rec, idx[HeaderDirect]),
			ViewURL:    cell(rec, idx[HeaderWebView]),
			UpdatedAt:  cell(rec, idx[HeaderLastUpdated]),
		})
	}
	return rows, nil
}

// indexHeader maps each known header name to its column, or -1. Names are
// matched case-insensitively after trimming; the first occurrence wins.
func indexHeader(header []string) map[string]int {
	names := []string{HeaderFolderPath, HeaderFilename, HeaderSize, HeaderDirect, HeaderWebView, HeaderLastUpdated}
	idx := make(map[string]int, len(names))
	for _, name := range names {
		idx[name] = -1
		for i, h := range header {
			if strings.EqualFold(csvparse.TrimField(h), name) {
				idx[name] = i
				break
			}
		}
	}
	return idx
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func hasProductPrefix(filename string) bool {
	for _, p := range ProductPrefixes {
		if strings.HasPrefix(filename, p) {
			return true
		}
	}
	return false
}

// Query filters installer rows. Zero values match everything.
type Query struct {
	Version   string // exact
	Component string // exact
	Text      string // case-insensitive substring of the filename
}

// Apply returns the rows matching q, in input order.
func (q Query) Apply(rows []Row) []Row {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	var out []Row
	for _, r := range rows {
		if q.Version != "" && r.Version != q.Version {
			continue
		}
		if q.Component != "" && r.Component != q.Component {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(r.Filename), text) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Versions returns the distinct versions of rows in dropdown order: known
// versions by version.Compare, then Unknown if any row has it.
func Versions(rows []Row) []string {
	seen := map[string]bool{}
	var known []string
	hasUnknown := false
	for _, r := range rows {
		if r.Version == "" || seen[r.Version] {
			continue
		}
		seen[r.Version] = true
		if r.Version == version.Unknown {
			hasUnknown = true
			continue
		}
		known = append(known, r.Version)
	}
	version.Sort(known)
	if hasUnknown {
		known = append(known, version.Unknown)
	}
	return known
}

// preferredComponents is the dropdown order for components; anything else
// follows alphabetically.
var preferredComponents = []string{
	inference.ComponentServer,
	inference.ComponentPortal,
	inference.ComponentDataStore,
	inference.ComponentNotebook,
	inference.ComponentWebAdaptor,
	inference.ComponentMonitor,
	inference.ComponentLicenseManager,
	inference.ComponentPro,
	inference.ComponentDesktop,
	inference.ComponentEnterprise,
	inference.ComponentOther,
}

// Components returns the distinct components of rows in dropdown order.
func Components(rows []Row) []string {
	present := map[string]bool{}
	for _, r := range rows {
		if r.Component != "" {
			present[r.Component] = true
		}
	}

	var out []string
	preferred := map[string]bool{}
	for _, c := range preferredComponents {
		preferred[c] = true
		if present[c] {
			out = append(out, c)
		}
	}

	var rest []string
	for c := range present {
		if !preferred[c] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
