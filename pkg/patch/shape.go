package patch

import "github.com/tidwall/gjson"

// Shape identifies which of the accepted patch feed layouts a document uses.
type Shape int

const (
	// ShapeUnknown is anything not matched below; it normalizes to empty sheets.
	ShapeUnknown Shape = iota
	// ShapeCanonical is already-normalized output: {"All_Enterprise": {"columns": [...], "rows": [...]}, ...}.
	ShapeCanonical
	// ShapeSingleSheet is one {"columns": [...], "rows": [...]} object.
	ShapeSingleSheet
	// ShapeFlatArray is a bare array of patch records.
	ShapeFlatArray
	// ShapeProductGroups is {"Product": [{"version": ..., "patches": [...]}, ...]}.
	ShapeProductGroups
	// ShapePatchesGroup is {"version": ..., "patches": [...]} with an optional version.
	ShapePatchesGroup
	// ShapeKeyedArrays is an object whose array-valued members are keyed by version.
	ShapeKeyedArrays
)

func (s Shape) String() string {
	switch s {
	case ShapeCanonical:
		return "canonical"
	case ShapeSingleSheet:
		return "single-sheet"
	case ShapeFlatArray:
		return "flat-array"
	case ShapeProductGroups:
		return "product-groups"
	case ShapePatchesGroup:
		return "patches-group"
	case ShapeKeyedArrays:
		return "keyed-arrays"
	}
	return "unknown"
}

// DetectShape reports the layout of a patch feed document. Checks run in a
// fixed order and the first match wins, so a canonical document that also
// happens to carry a "patches" member is still canonical.
func DetectShape(raw []byte) Shape {
	return detectShape(gjson.ParseBytes(raw))
}

func detectShape(doc gjson.Result) Shape {
	switch {
	case isSheet(doc.Get(AllSheet)):
		return ShapeCanonical
	case isSheet(doc):
		return ShapeSingleSheet
	case doc.IsArray():
		return ShapeFlatArray
	case doc.Get("Product").IsArray():
		return ShapeProductGroups
	case doc.Get("patches").IsArray():
		return ShapePatchesGroup
	case doc.IsObject():
		return ShapeKeyedArrays
	}
	return ShapeUnknown
}

// isSheet reports whether v is an object carrying columns and rows arrays.
func isSheet(v gjson.Result) bool {
	return v.IsObject() && v.Get("columns").IsArray() && v.Get("rows").IsArray()
}
