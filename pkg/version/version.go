// Package version orders and tokenizes product version strings.
//
// Versions come in three classes that sort in this order:
//   - numeric: fully dot-separated integers ("10.9.1", "11.3", "2023.1")
//   - opaque: anything else, compared lexically
//   - Unknown: the sentinel for "could not be inferred", always last
package version

import (
	"sort"
	"strconv"
	"strings"
)

// Unknown is the placeholder version for rows whose version could not be inferred.
const Unknown = "Unknown"

type class int

const (
	classNumeric class = 1
	classOpaque  class = 5
	classUnknown class = 9
)

type sortKey struct {
	class class
	parts []uint64
	text  string
}

func keyOf(v string) sortKey {
	if v == Unknown {
		return sortKey{class: classUnknown}
	}
	if parts, ok := numericParts(v); ok {
		return sortKey{class: classNumeric, parts: parts}
	}
	return sortKey{class: classOpaque, text: v}
}

func numericParts(v string) ([]uint64, bool) {
	if v == "" {
		return nil, false
	}
	fields := strings.Split(v, ".")
	parts := make([]uint64, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			return nil, false
		}
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, false
		}
		parts = append(parts, n)
	}
	return parts, true
}

// Compare returns a negative number when a sorts before b, zero when they are
// equivalent and a positive number otherwise. Numeric versions compare as
// integer tuples with missing trailing components treated as zero, so "2.10"
// sorts after "2.9" and "11" equals "11.0".
func Compare(a, b string) int {
	ka, kb := keyOf(a), keyOf(b)
	if ka.class != kb.class {
		return int(ka.class) - int(kb.class)
	}

	switch ka.class {
	case classNumeric:
		n := len(ka.parts)
		if len(kb.parts) > n {
			n = len(kb.parts)
		}
		for i := 0; i < n; i++ {
			var da, db uint64
			if i < len(ka.parts) {
				da = ka.parts[i]
			}
			if i < len(kb.parts) {
				db = kb.parts[i]
			}
			if da < db {
				return -1
			}
			if da > db {
				return 1
			}
		}
		return 0
	case classOpaque:
		return strings.Compare(ka.text, kb.text)
	}
	return 0
}

// Sort orders versions in place using Compare.
func Sort(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) < 0
	})
}

// Token strips the dots from a trimmed version string ("11.2" -> "112").
// Tokens are matched against installer and patch file names.
func Token(v string) string {
	return strings.ReplaceAll(strings.TrimSpace(v), ".", "")
}

// NaturalCompare compares two strings treating runs of digits as numbers, so
// "v10_9" sorts after "v9_1" and "v11_10" after "v11_2".
func NaturalCompare(a, b string) int {
	for a != "" && b != "" {
		ca, ra := nextChunk(a)
		cb, rb := nextChunk(b)
		if c := compareChunk(ca, cb); c != 0 {
			return c
		}
		a, b = ra, rb
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

func nextChunk(s string) (string, string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func compareChunk(a, b string) int {
	if isDigit(a[0]) && isDigit(b[0]) {
		ta := strings.TrimLeft(a, "0")
		tb := strings.TrimLeft(b, "0")
		if len(ta) != len(tb) {
			return len(ta) - len(tb)
		}
		if c := strings.Compare(ta, tb); c != 0 {
			return c
		}
		return len(a) - len(b)
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
