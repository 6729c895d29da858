package cif

import (
	"strings"
	"unicode"
)

// Tokenize splits a data line into whitespace-separated values. Quoted spans
// keep their whitespace and their quote characters; a quote of the other kind
// inside an open span is ordinary content.
func Tokenize(line string) []string {
	var (
		values []string
		cur    strings.Builder
		open   rune
	)
	flush := func() {
		if cur.Len() > 0 {
			values = append(values, cur.String())
			cur.Reset()
		}
	}

	for _, r := range line {
		switch {
		case r == '"' || r == '\'':
			if open == 0 {
				open = r
			} else if r == open {
				open = 0
			}
			cur.WriteRune(r)
		case unicode.IsSpace(r) && open == 0:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return values
}
