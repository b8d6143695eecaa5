package inference

import (
	"regexp"

	"github.com/tsanders/patchbrowser/pkg/version"
)

var (
	proFolderPattern    = regexp.MustCompile(`(?i)ArcGISPro(\d{2,4})\b`)
	proFilePattern      = regexp.MustCompile(`(?i)ArcGISPro_(\d{2,4})\b`)
	proFileAltPattern   = regexp.MustCompile(`(?i)ArcGIS_Pro_(\d{2,4})\b`)
	yearSubPattern      = regexp.MustCompile(`(?:^|[^0-9])(20\d{2})[_\-. ](\d{1,2})(?:[_\-. ]|[^0-9]|$)`)
	yearPattern         = regexp.MustCompile(`(?:^|[^0-9])(20\d{2})(?:[^0-9]|$)`)
	enterprise12Pattern = regexp.MustCompile(`(?:^|[^0-9])(12\d)(?:[_\-. ]|[^0-9]|$)`)
	explicit11Pattern   = regexp.MustCompile(`\b11\.(\d)\b`)
	arcgisDigitsPattern = regexp.MustCompile(`(?i)ArcGIS(1\d{2,4})\b`)
	dottedTriplePattern = regexp.MustCompile(`\b(\d{1,2}\.\d{1,2}\.\d{1,2})\b`)
	dottedPairPattern   = regexp.MustCompile(`\b(\d{1,2}\.\d{1,2})\b`)
)

// Components whose installers are versioned by release year ("2023.1").
var yearVersionedComponents = map[string]bool{
	ComponentLicenseManager: true,
	ComponentMonitor:        true,
	ComponentInsights:       true,
}

// Enterprise components whose 12.x installers carry a three-digit release run.
var enterpriseComponents = map[string]bool{
	ComponentServer:     true,
	ComponentPortal:     true,
	ComponentDataStore:  true,
	ComponentNotebook:   true,
	ComponentWebAdaptor: true,
}

// versionRule returns the inferred version and true, or "" and false to let
// the next rule try.
type versionRule func(filename, folderPath, component string) (string, bool)

var versionRules = []versionRule{
	proVersion,
	yearVersion,
	enterprise12Version,
	explicit11Version,
	arcgisDigitsVersion,
	dottedVersion,
}

// InferVersion derives a canonical version for an installer from its file
// name, folder path and already-inferred component. It returns version.Unknown
// when no rule matches.
func InferVersion(filename, folderPath, component string) string {
	for _, rule := range versionRules {
		if v, ok := rule(filename, folderPath, component); ok {
			return v
		}
	}
	return version.Unknown
}

func proVersion(fn, fp, _ string) (string, bool) {
	m := proFolderPattern.FindStringSubmatch(fp)
	if m == nil {
		m = proFilePattern.FindStringSubmatch(fn)
	}
	if m == nil {
		m = proFileAltPattern.FindStringSubmatch(fn)
	}
	if m == nil {
		return "", false
	}
	v := normalizeProDigits(m[1])
	return v, v != ""
}

// normalizeProDigits turns a Pro digit run into a dotted version:
// "31" -> "3.1", "305" -> "3.0.5", "3012" -> "3.0.12".
func normalizeProDigits(s string) string {
	switch len(s) {
	case 2:
		return s[:1] + "." + s[1:]
	case 3:
		return s[:1] + "." + s[1:2] + "." + s[2:]
	case 4:
		return s[:1] + "." + s[1:2] + "." + s[2:]
	}
	return ""
}

func yearVersion(fn, fp, component string) (string, bool) {
	if !yearVersionedComponents[component] {
		return "", false
	}
	if v, ok := parseYearSubVersion(fn); ok {
		return v, true
	}
	return parseYearSubVersion(fp)
}

func parseYearSubVersion(s string) (string, bool) {
	if m := yearSubPattern.FindStringSubmatch(s); m != nil {
		return m[1] + "." + m[2], true
	}
	if m := yearPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}

func enterprise12Version(fn, fp, component string) (string, bool) {
	if !enterpriseComponents[component] {
		return "", false
	}
	m := enterprise12Pattern.FindStringSubmatch(fn)
	if m == nil {
		m = enterprise12Pattern.FindStringSubmatch(fp)
	}
	if m == nil {
		return "", false
	}
	digits := m[1]
	if digits < "120" || digits > "129" {
		return "", false
	}
	return "12." + digits[2:], true
}

func explicit11Version(_, fp, _ string) (string, bool) {
	if m := explicit11Pattern.FindStringSubmatch(fp); m != nil {
		return "11." + m[1], true
	}
	return "", false
}

func arcgisDigitsVersion(_, fp, _ string) (string, bool) {
	m := arcgisDigitsPattern.FindStringSubmatch(fp)
	if m == nil {
		return "", false
	}
	s := m[1]
	switch {
	case len(s) == 3 && s[:2] == "11":
		return "11." + s[2:], true
	case len(s) == 4 && s[:2] == "10":
		return "10." + s[2:3] + "." + s[3:], true
	case len(s) == 5 && s[:2] == "10":
		return "10." + s[2:3] + "." + s[3:], true
	}
	return "", false
}

func dottedVersion(_, fp, _ string) (string, bool) {
	if m := dottedTriplePattern.FindStringSubmatch(fp); m != nil {
		return m[1], true
	}
	if m := dottedPairPattern.FindStringSubmatch(fp); m != nil {
		return m[1], true
	}
	return "", false
}
