package patch

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

const rawKey = "_raw"

// wireRow is the row object carried in the RowColumn cell of a canonical sheet.
type wireRow struct {
	Released     string   `json:"Released"`
	ReleaseMonth string   `json:"Release Month"`
	Component    string   `json:"Component"`
	Security     string   `json:"Security"`
	PatchName    string   `json:"Patch Name"`
	SupportPage  string   `json:"Support Page"`
	PatchFiles   []string `json:"PatchFiles"`
	Version      string   `json:"version"`
	Raw          Record   `json:"_raw"`
}

type wireSheet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the sheet in canonical form: the fixed column list and
// one cell array per row, the last cell being the full row object. A sheet
// decoded from canonical input is written back exactly as it was received.
func (s Sheet) MarshalJSON() ([]byte, error) {
	if len(s.source) > 0 {
		return s.source, nil
	}
	out := wireSheet{Columns: Columns, Rows: make([][]any, 0, len(s.Rows))}
	for _, r := range s.Rows {
		files := r.PatchFiles
		if files == nil {
			files = []string{}
		}
		obj := wireRow{
			Released:     r.Released,
			ReleaseMonth: r.ReleaseMonth,
			Component:    r.Component,
			Security:     r.SecurityFlag(),
			PatchName:    r.PatchName,
			SupportPage:  r.SupportPage,
			PatchFiles:   files,
			Version:      r.Version,
			Raw:          r.Raw,
		}
		out.Rows = append(out.Rows, []any{
			obj.Released,
			obj.ReleaseMonth,
			obj.Component,
			obj.Security,
			obj.PatchName,
			obj.SupportPage,
			obj.PatchFiles,
			obj,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a canonical sheet. Cells are matched to fields by
// column name, so sheets with reordered or missing columns still decode.
func (s *Sheet) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return ErrInvalidJSON
	}
	*s = *decodeSheet(gjson.ParseBytes(data))
	return nil
}

func decodeSheet(v gjson.Result) *Sheet {
	cols := []string{}
	for _, c := range v.Get("columns").Array() {
		cols = append(cols, c.String())
	}
	sh := &Sheet{Columns: cols, source: json.RawMessage(v.Raw)}
	for _, r := range v.Get("rows").Array() {
		sh.Rows = append(sh.Rows, decodeCanonicalRow(cols, r))
	}
	return sh
}

// decodeCanonicalRow rebuilds a PatchRow from a cell array. When a row object
// cell is present its fields take precedence over the plain cells and its
// retained record (if any) becomes Raw; otherwise the cells themselves are the
// record.
func decodeCanonicalRow(cols []string, r gjson.Result) PatchRow {
	fields := Record{}
	var rowObj map[string]any

	if r.IsObject() {
		rowObj, _ = decodeValue(r).(map[string]any)
	} else {
		for i, cell := range r.Array() {
			if i >= len(cols) {
				break
			}
			if cols[i] == RowColumn {
				rowObj, _ = decodeValue(cell).(map[string]any)
				continue
			}
			fields[cols[i]] = decodeValue(cell)
		}
	}

	raw := fields
	if rowObj != nil {
		for k, v := range rowObj {
			if k != rawKey {
				fields[k] = v
			}
		}
		raw = nil
		if m, ok := rowObj[rawKey].(map[string]any); ok {
			raw = Record(m)
		}
	}

	return PatchRow{
		Released:     stringify(fields[ColReleased]),
		ReleaseMonth: stringify(fields[ColReleaseMonth]),
		Component:    stringify(fields[ColComponent]),
		Security:     normalizeSecurity(stringify(fields[ColSecurity])),
		PatchName:    stringify(fields[ColPatchName]),
		SupportPage:  stringify(fields[ColSupportPage]),
		PatchFiles:   stringList(fields[ColPatchFiles]),
		Version:      strings.TrimSpace(stringify(fields["version"])),
		Raw:          raw,
	}
}
