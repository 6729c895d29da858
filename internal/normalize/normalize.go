// Package normalize canonicalizes field values before two documents are
// compared.
package normalize

import "strings"

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

var bondOrderSynonyms = map[string]string{
	"sing": "single",
	"doub": "double",
}

// Value trims surrounding whitespace, removes wrapping quotes, deletes line
// breaks so folded text blocks compare as one token, and lower-cases. Quote
// layers are removed until none remain so that Value(Value(x)) == Value(x).
func Value(v string) string {
	v = strings.TrimSpace(v)
	for len(v) > 0 && isQuoted(v) {
		if len(v) == 1 {
			v = ""
			break
		}
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	v = lineBreaks.Replace(v)
	return strings.ToLower(v)
}

// BondOrder normalizes a value and maps abbreviated bond orders to the long
// vocabulary.
func BondOrder(v string) string {
	v = Value(v)
	if long, ok := bondOrderSynonyms[v]; ok {
		return long
	}
	return v
}

// ForField picks the normalization for a field-path: bond-order fields and
// type fields use BondOrder, everything else Value.
func ForField(path, v string) string {
	if UsesBondOrder(path) {
		return BondOrder(v)
	}
	return Value(v)
}

// UsesBondOrder reports whether values of path go through BondOrder.
func UsesBondOrder(path string) bool {
	return strings.Contains(path, "value_order") || strings.Contains(path, "type")
}

// isQuoted reports whether s starts and ends with the same quote character.
// A lone quote counts, and unwraps to the empty string.
func isQuoted(s string) bool {
	if len(s) == 1 {
		return s == `"` || s == `'`
	}
	first, last := s[0], s[len(s)-1]
	return first == last && (first == '"' || first == '\'')
}
