// Package patch normalizes patch feeds into canonical, version-scoped sheets.
//
// A patch feed arrives in one of several JSON shapes (see Shape). Normalize
// detects the shape, runs the matching parser and produces Sheets: one unscoped
// sheet holding every row plus one sheet per product version. The package also
// resolves per-version download links (PickFileByVersion, DirectDownloadURL)
// and filters sheets for display (Query).
package patch

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/tsanders/patchbrowser/pkg/version"
)

// AllSheet is the key of the unscoped sheet that holds every row.
const AllSheet = "All_Enterprise"

// Column names of a canonical sheet, in wire order. RowColumn carries the
// full row object (including the raw record) as the last cell.
const (
	ColReleased     = "Released"
	ColReleaseMonth = "Release Month"
	ColComponent    = "Component"
	ColSecurity     = "Security"
	ColPatchName    = "Patch Name"
	ColSupportPage  = "Support Page"
	ColPatchFiles   = "PatchFiles"
	RowColumn       = "__row"
)

// Columns is the column list every normalized sheet carries.
var Columns = []string{
	ColReleased,
	ColReleaseMonth,
	ColComponent,
	ColSecurity,
	ColPatchName,
	ColSupportPage,
	ColPatchFiles,
	RowColumn,
}

// Component labels derived from a patch's free-text product description.
const (
	ComponentServer    = "ArcGIS Server"
	ComponentPortal    = "Portal"
	ComponentDataStore = "Data Store"
	ComponentNotebook  = "Notebook"
	ComponentGeoEvent  = "GeoEvent"
	ComponentOther     = "Other"
)

// PatchRow is the canonical row for one patch.
type PatchRow struct {
	Released     string   `json:"released"`     // YYYY-MM-DD, verbatim, or empty
	ReleaseMonth string   `json:"releaseMonth"` // YYYY-MM or empty
	Component    string   `json:"component"`
	Security     bool     `json:"security"`
	PatchName    string   `json:"patchName"`
	SupportPage  string   `json:"supportPage"`
	PatchFiles   []string `json:"patchFiles,omitempty"`
	Version      string   `json:"version,omitempty"` // empty means unscoped
	Raw          Record   `json:"raw,omitempty"`
}

// SecurityFlag renders Security the way the feed and the tables show it.
func (r PatchRow) SecurityFlag() string {
	if r.Security {
		return "Y"
	}
	return "N"
}

// Sheet is a named collection of rows sharing one column list.
type Sheet struct {
	Columns []string
	Rows    []PatchRow

	// source is the sheet JSON as received when the feed was already
	// canonical. It is written back verbatim by MarshalJSON.
	source json.RawMessage
}

func newSheet() *Sheet {
	cols := make([]string, len(Columns))
	copy(cols, Columns)
	return &Sheet{Columns: cols}
}

// Sheets maps sheet keys to sheets. It always contains AllSheet once built by
// Normalize or NewSheets.
type Sheets map[string]*Sheet

// NewSheets returns Sheets holding only an empty unscoped sheet.
func NewSheets() Sheets {
	return Sheets{AllSheet: newSheet()}
}

// SheetKey returns the sheet key for a version: "v" + version with dots
// replaced by underscores, or AllSheet for an empty version.
func SheetKey(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return AllSheet
	}
	return "v" + strings.ReplaceAll(v, ".", "_")
}

// VersionFromKey reverses SheetKey. It returns "" for AllSheet and for keys
// that are not version sheets.
func VersionFromKey(key string) string {
	if key == AllSheet || !strings.HasPrefix(key, "v") {
		return ""
	}
	return strings.ReplaceAll(key[1:], "_", ".")
}

// SheetLabel returns the human-readable name of a sheet key.
func SheetLabel(key string) string {
	if key == AllSheet {
		return "All versions"
	}
	return strings.ReplaceAll(key, "_", ".")
}

// add appends row to the unscoped sheet and, when it has a version, to its
// version sheet as well.
func (s Sheets) add(row PatchRow) {
	s.appendTo(AllSheet, row)
	if key := SheetKey(row.Version); key != AllSheet {
		s.appendTo(key, row)
	}
}

func (s Sheets) appendTo(key string, row PatchRow) {
	sh, ok := s[key]
	if !ok {
		sh = newSheet()
		s[key] = sh
	}
	sh.Rows = append(sh.Rows, row)
}

// Keys returns the sheet keys in display order: AllSheet first, then version
// sheets in natural order.
func (s Sheets) Keys() []string {
	keys := make([]string, 0, len(s))
	hasAll := false
	for k := range s {
		if k == AllSheet {
			hasAll = true
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return version.NaturalCompare(keys[i], keys[j]) < 0
	})
	if hasAll {
		keys = append([]string{AllSheet}, keys...)
	}
	return keys
}

// Sheet returns the sheet for key, falling back to the unscoped sheet and
// finally to an empty sheet.
func (s Sheets) Sheet(key string) *Sheet {
	if sh, ok := s[key]; ok {
		return sh
	}
	if sh, ok := s[AllSheet]; ok {
		return sh
	}
	return newSheet()
}

// ResolveKey returns key when it exists, otherwise the key a viewer should
// fall back to (AllSheet if present, else the first sheet in display order).
func (s Sheets) ResolveKey(key string) string {
	if _, ok := s[key]; ok {
		return key
	}
	keys := s.Keys()
	if len(keys) == 0 {
		return AllSheet
	}
	return keys[0]
}

// Components returns the sorted distinct non-empty components of the
// unscoped sheet.
func (s Sheets) Components() []string {
	seen := map[string]bool{}
	var out []string
	for _, row := range s.Sheet(AllSheet).Rows {
		if row.Component == "" || seen[row.Component] {
			continue
		}
		seen[row.Component] = true
		out = append(out, row.Component)
	}
	sort.Strings(out)
	return out
}

// RowCount returns the number of rows in the unscoped sheet.
func (s Sheets) RowCount() int {
	return len(s.Sheet(AllSheet).Rows)
}
