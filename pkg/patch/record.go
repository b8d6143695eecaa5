package patch

import (
	"sort"
	"strconv"
	"strings"
)

// Record is an upstream patch record exactly as it appeared in the feed. It is
// kept on every row because fields outside the canonical columns (alternate
// download keys, per-file lists) are needed later for link resolution.
type Record map[string]any

// Candidate key spellings for each canonical field, in priority order.
var (
	releasedKeys  = []string{"ReleaseDate", "Released", "released"}
	componentKeys = []string{"Products", "Component", "component"}
	securityKeys  = []string{"Critical", "Security", "security"}
	nameKeys      = []string{"Name", "Patch Name", "patch"}
	supportKeys   = []string{"url", "Support Page", "support"}
	filesKeys     = []string{"PatchFiles", "patchFiles", "patchfiles"}
	versionKeys   = []string{"version", "Version"}
)

// downloadKeys are tried, case-insensitively, when a record has no file list.
var downloadKeys = []string{
	"download_url",
	"download url",
	"download",
	"direct download",
	"download link",
	"file url",
	"file_url",
	"qfe_url",
	"qfe url",
	"url",
}

// keyIndex resolves candidate key spellings against one record. It is built
// once per record and maps lower-cased keys to the record's own spelling.
type keyIndex struct {
	rec   Record
	lower map[string]string
}

func newKeyIndex(rec Record) keyIndex {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lower := make(map[string]string, len(keys))
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, dup := lower[lk]; !dup {
			lower[lk] = k
		}
	}
	return keyIndex{rec: rec, lower: lower}
}

// get returns the value stored under key, preferring an exact match over a
// case-insensitive one.
func (ix keyIndex) get(key string) (any, bool) {
	if v, ok := ix.rec[key]; ok {
		return v, true
	}
	if k, ok := ix.lower[strings.ToLower(key)]; ok {
		return ix.rec[k], true
	}
	return nil, false
}

// first returns the first present (non-empty) value among candidates.
func (ix keyIndex) first(candidates []string) any {
	for _, c := range candidates {
		if v, ok := ix.get(c); ok && present(v) {
			return v
		}
	}
	return nil
}

// firstString is first rendered as a string.
func (ix keyIndex) firstString(candidates []string) string {
	return stringify(ix.first(candidates))
}

// present reports whether a feed value counts as supplied. Empty strings,
// false, zero and null do not.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return true
}

// stringify renders a decoded JSON value as display text. Arrays are joined
// with commas; objects render as empty text.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	}
	return ""
}

// stringList converts a file-list value into URLs. Arrays keep element order
// (blank elements included, so indexes line up with the feed); a non-empty
// scalar becomes a single entry.
func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return nil
		}
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = stringify(e)
		}
		return out
	case []string:
		if len(t) == 0 {
			return nil
		}
		out := make([]string, len(t))
		copy(out, t)
		return out
	}
	if s := stringify(v); s != "" {
		return []string{s}
	}
	return nil
}
