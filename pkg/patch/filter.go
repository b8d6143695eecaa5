package patch

import "strings"

// RenderLimit caps how many filtered rows a view renders.
const RenderLimit = 4000

// Query filters the rows of one sheet. Zero values match everything.
type Query struct {
	Text      string // case-insensitive substring over all visible cells
	Component string // case-insensitive exact match
	Security  string // "Y" or "N"
	Limit     int    // rows to return; 0 means RenderLimit, negative means no cap
}

// Result is the outcome of applying a Query.
type Result struct {
	Rows  []PatchRow
	Total int // rows that matched, before the limit was applied
}

// Truncated reports whether Rows holds fewer rows than matched.
func (r Result) Truncated() bool {
	return len(r.Rows) < r.Total
}

// Apply filters sheet rows. Rows that merely repeat the column headers are
// dropped; some upstream exports leave them in.
func (q Query) Apply(sheet *Sheet) Result {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	comp := strings.ToLower(strings.TrimSpace(q.Component))
	sec := strings.TrimSpace(q.Security)

	limit := q.Limit
	if limit == 0 {
		limit = RenderLimit
	}

	var res Result
	if sheet == nil {
		return res
	}
	for _, row := range sheet.Rows {
		if isHeaderRow(row) {
			continue
		}
		if comp != "" && strings.ToLower(row.Component) != comp {
			continue
		}
		if sec != "" && row.SecurityFlag() != sec {
			continue
		}
		if text != "" && !strings.Contains(searchText(row), text) {
			continue
		}
		res.Total++
		if limit < 0 || len(res.Rows) < limit {
			res.Rows = append(res.Rows, row)
		}
	}
	return res
}

func isHeaderRow(row PatchRow) bool {
	return strings.TrimSpace(row.Released) == ColReleased &&
		strings.TrimSpace(row.PatchName) == ColPatchName &&
		strings.TrimSpace(row.SupportPage) == ColSupportPage
}

func searchText(row PatchRow) string {
	return strings.ToLower(strings.Join([]string{
		row.Released,
		row.ReleaseMonth,
		row.Component,
		row.SecurityFlag(),
		row.PatchName,
		row.SupportPage,
		strings.Join(row.PatchFiles, ","),
	}, " "))
}
