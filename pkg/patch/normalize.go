package patch

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned by Normalize when the feed is not valid JSON.
// Valid JSON in an unrecognised shape is not an error.
var ErrInvalidJSON = errors.New("patch feed is not valid JSON")

var (
	isoDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	usDatePattern   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoMonthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// patchComponentMarkers is checked in order against the lower-cased product text.
var patchComponentMarkers = []struct {
	marker, label string
}{
	{"portal", ComponentPortal},
	{"data store", ComponentDataStore},
	{"notebook", ComponentNotebook},
	{"geoevent", ComponentGeoEvent},
	{"server", ComponentServer},
}

// group is a batch of raw patch records sharing an optional version.
type group struct {
	version string
	patches []gjson.Result
}

type shapeParser func(doc gjson.Result) Sheets

var shapeParsers = map[Shape]shapeParser{
	ShapeCanonical:     parseCanonical,
	ShapeSingleSheet:   parseSingleSheet,
	ShapeFlatArray:     parseFlatArray,
	ShapeProductGroups: parseProductGroups,
	ShapePatchesGroup:  parsePatchesGroup,
	ShapeKeyedArrays:   parseKeyedArrays,
	ShapeUnknown:       func(gjson.Result) Sheets { return NewSheets() },
}

// Normalize converts a patch feed in any supported shape into canonical
// sheets. The result always contains AllSheet.
func Normalize(raw []byte) (Sheets, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(raw)
	return shapeParsers[detectShape(doc)](doc), nil
}

func parseCanonical(doc gjson.Result) Sheets {
	sheets := NewSheets()
	doc.ForEach(func(key, value gjson.Result) bool {
		if isSheet(value) {
			sheets[key.String()] = decodeSheet(value)
		}
		return true
	})
	return sheets
}

func parseSingleSheet(doc gjson.Result) Sheets {
	return Sheets{AllSheet: decodeSheet(doc)}
}

func parseFlatArray(doc gjson.Result) Sheets {
	return buildSheets([]group{{patches: doc.Array()}})
}

func parseProductGroups(doc gjson.Result) Sheets {
	var groups []group
	for _, g := range doc.Get("Product").Array() {
		groups = append(groups, newGroup(g.Get("version"), g.Get("patches")))
	}
	return buildSheets(groups)
}

func parsePatchesGroup(doc gjson.Result) Sheets {
	return buildSheets([]group{newGroup(doc.Get("version"), doc.Get("patches"))})
}

func parseKeyedArrays(doc gjson.Result) Sheets {
	var groups []group
	doc.ForEach(func(key, value gjson.Result) bool {
		if value.IsArray() {
			groups = append(groups, group{
				version: strings.TrimSpace(key.String()),
				patches: value.Array(),
			})
		}
		return true
	})
	return buildSheets(groups)
}

func newGroup(version, patches gjson.Result) group {
	g := group{}
	if v := decodeValue(version); present(v) {
		g.version = strings.TrimSpace(stringify(v))
	}
	if patches.IsArray() {
		g.patches = patches.Array()
	}
	return g
}

func buildSheets(groups []group) Sheets {
	sheets := NewSheets()
	for _, g := range groups {
		for _, p := range g.patches {
			sheets.add(normalizeRecord(decodeValue(p), g.version))
		}
	}
	return sheets
}

// decodeValue materializes a JSON value the way encoding/json does, so records
// compare equal after a marshal round trip.
func decodeValue(r gjson.Result) any {
	if !r.Exists() {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(r.Raw), &v); err != nil {
		return nil
	}
	return v
}

// normalizeRecord builds the canonical row for one upstream record. A non-empty
// groupVersion overrides any version carried by the record itself.
func normalizeRecord(v any, groupVersion string) PatchRow {
	rec, _ := v.(map[string]any)
	ix := newKeyIndex(rec)

	rowVersion := groupVersion
	if rowVersion == "" {
		rowVersion = strings.TrimSpace(ix.firstString(versionKeys))
	}

	released := normalizeReleaseDate(ix.firstString(releasedKeys))
	return PatchRow{
		Released:     released,
		ReleaseMonth: releaseMonth(released),
		Component:    inferPatchComponent(ix.firstString(componentKeys)),
		Security:     normalizeSecurity(ix.firstString(securityKeys)),
		PatchName:    ix.firstString(nameKeys),
		SupportPage:  ix.firstString(supportKeys),
		PatchFiles:   stringList(ix.first(filesKeys)),
		Version:      rowVersion,
		Raw:          Record(rec),
	}
}

// normalizeReleaseDate keeps ISO dates, converts M/D/YYYY to ISO and passes
// anything else through trimmed.
func normalizeReleaseDate(val string) string {
	s := strings.TrimSpace(val)
	if s == "" || isoDatePattern.MatchString(s) {
		return s
	}
	if m := usDatePattern.FindStringSubmatch(s); m != nil {
		return m[3] + "-" + pad2(m[1]) + "-" + pad2(m[2])
	}
	return s
}

// releaseMonth derives YYYY-MM from a release date, or "" when the date is in
// no recognised form.
func releaseMonth(val string) string {
	s := strings.TrimSpace(val)
	switch {
	case s == "":
		return ""
	case isoDatePattern.MatchString(s):
		return s[:7]
	case isoMonthPattern.MatchString(s):
		return s
	}
	if m := usDatePattern.FindStringSubmatch(s); m != nil {
		return m[3] + "-" + pad2(m[1])
	}
	return ""
}

func pad2(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func inferPatchComponent(products string) string {
	text := strings.ToLower(products)
	for _, m := range patchComponentMarkers {
		if strings.Contains(text, m.marker) {
			return m.label
		}
	}
	return ComponentOther
}

func normalizeSecurity(val string) bool {
	s := strings.ToLower(val)
	return strings.Contains(s, "security") || s == "y" || s == "yes" || s == "true"
}
