package patch

import (
	"regexp"
	"strings"

	"github.com/tsanders/patchbrowser/pkg/version"
)

// TrustedHost is the update-distribution host direct download links must use.
const TrustedHost = "gisupdates.esri.com"

var trustedHostPattern = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(TrustedHost))

// IsTrusted reports whether url points at TrustedHost.
func IsTrusted(url string) bool {
	return trustedHostPattern.MatchString(url)
}

// fileNamePatterns returns the version-tagged naming conventions used by
// patch files on TrustedHost for one version token.
func fileNamePatterns(token string) []*regexp.Regexp {
	t := regexp.QuoteMeta(token)
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)ArcGIS-` + t + `-`),
		regexp.MustCompile(`(?i)/PFA-` + t + `-`),
		regexp.MustCompile(`(?i)/S-` + t + `-`),
	}
}

// PickFileByVersion returns the first trusted URL whose file name is tagged
// with v ("11.2" matches ".../ArcGIS-112-..."). Candidates are tried in order;
// blank entries are skipped.
func PickFileByVersion(urls []string, v string) (string, bool) {
	token := version.Token(v)
	if token == "" || len(urls) == 0 {
		return "", false
	}
	patterns := fileNamePatterns(token)
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || !IsTrusted(u) {
			continue
		}
		for _, re := range patterns {
			if re.MatchString(u) {
				return u, true
			}
		}
	}
	return "", false
}

// RowVersion returns the version a row belongs to: its own version, or the
// version of the version sheet it is being viewed in.
func RowVersion(row PatchRow, activeSheet string) string {
	if row.Version != "" {
		return row.Version
	}
	return VersionFromKey(activeSheet)
}

// DirectDownloadURL resolves a direct download link for row. A record that
// lists patch files is matched by version only. Otherwise the first HTTP link
// found under a known download key is used, provided it is on TrustedHost.
func DirectDownloadURL(row PatchRow, activeSheet string) (string, bool) {
	v := RowVersion(row, activeSheet)

	if row.Raw == nil {
		if len(row.PatchFiles) > 0 {
			return PickFileByVersion(row.PatchFiles, v)
		}
		return "", false
	}

	ix := newKeyIndex(row.Raw)
	if files, ok := asList(ix.first(filesKeys)); ok && len(files) > 0 {
		return PickFileByVersion(files, v)
	}

	for _, key := range downloadKeys {
		val, ok := ix.get(key)
		if !ok {
			continue
		}
		if u, found := FirstHTTPURL(val); found {
			if IsTrusted(u) {
				return u, true
			}
			return "", false
		}
	}
	return "", false
}

func asList(v any) ([]string, bool) {
	switch v.(type) {
	case []any, []string:
		return stringList(v), true
	}
	return nil, false
}

// SplitURLs splits free text on whitespace and keeps the tokens that start
// with "http" (any case).
func SplitURLs(text string) []string {
	var out []string
	for _, f := range strings.Fields(text) {
		if strings.HasPrefix(strings.ToLower(f), "http") {
			out = append(out, f)
		}
	}
	return out
}

// FirstHTTPURL returns the first HTTP link in a feed value. Arrays are
// searched element by element, depth first.
func FirstHTTPURL(v any) (string, bool) {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if u, ok := FirstHTTPURL(e); ok {
				return u, true
			}
		}
		return "", false
	case []string:
		for _, e := range t {
			if u, ok := FirstHTTPURL(e); ok {
				return u, true
			}
		}
		return "", false
	}
	urls := SplitURLs(stringify(v))
	if len(urls) == 0 {
		return "", false
	}
	return urls[0], true
}

// SupportURL returns the link shown for a support page cell: the first HTTP
// token of the text.
func SupportURL(text string) (string, bool) {
	urls := SplitURLs(text)
	if len(urls) == 0 {
		return "", false
	}
	return urls[0], true
}
