package cif

import (
	"io"
	"regexp"
	"strings"
	"unicode"
)

type parseState int

const (
	stateNormal parseState = iota
	stateMultiline
	stateLoop
)

// bareKey matches a line holding only an item name, as found right before a
// semicolon text block.
var bareKey = regexp.MustCompile(`^_(\S+)\s*$`)

// Parse reads mmCIF text into a Document. It never fails: lines it does not
// understand are skipped, so the result may be partial for damaged input.
func Parse(text string) *Document {
	p := &parser{
		lines: splitLines(text),
		doc:   newDocument(),
	}
	p.run()
	return p.doc
}

// ParseReader reads all of r and parses it. Only read errors are returned.
func ParseReader(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

type parser struct {
	lines []string
	i     int
	state parseState
	doc   *Document

	blockKey   string
	blockLines []string
}

func (p *parser) run() {
	for p.i < len(p.lines) {
		line := strings.TrimSpace(p.lines[p.i])

		switch p.state {
		case stateMultiline:
			p.multilineLine(line)
			p.i++
			continue
		case stateLoop:
			p.readLoop()
			p.state = stateNormal
			continue
		}

		if strings.HasPrefix(line, ";") {
			p.openBlock(line)
			p.i++
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			p.i++
			continue
		}
		if strings.HasPrefix(line, "_") {
			p.scalar(line)
			p.i++
			continue
		}
		if line == "loop_" {
			p.i++
			p.state = stateLoop
			continue
		}
		if strings.HasPrefix(line, "data_") {
			p.doc.DataBlock = strings.TrimPrefix(line, "data_")
		}
		p.i++
	}
}

// openBlock starts a semicolon text block. The key comes from the previous
// raw line; without one the block is consumed and dropped.
func (p *parser) openBlock(line string) {
	p.state = stateMultiline
	p.blockKey = ""
	p.blockLines = nil
	if p.i == 0 {
		return
	}
	m := bareKey.FindStringSubmatch(strings.TrimSpace(p.lines[p.i-1]))
	if m == nil {
		return
	}
	p.blockKey = m[1]
	if rest := strings.TrimSpace(line[1:]); rest != "" {
		p.blockLines = append(p.blockLines, rest)
	}
}

func (p *parser) multilineLine(line string) {
	if line != ";" {
		p.blockLines = append(p.blockLines, line)
		return
	}
	if p.blockKey != "" {
		p.doc.scalars[p.blockKey] = strings.Join(p.blockLines, "\n")
	}
	p.state = stateNormal
	p.blockKey = ""
	p.blockLines = nil
}

// scalar handles "_key value". A key with no value is left for a following
// text block to fill.
func (p *parser) scalar(line string) {
	cut := strings.IndexFunc(line, unicode.IsSpace)
	if cut < 0 {
		return
	}
	key := line[:cut]
	value := unquote(strings.TrimSpace(line[cut:]))
	if value == "?" {
		value = ""
	}
	p.doc.scalars[key] = value
}

// readLoop consumes the header and data lines following "loop_" and leaves
// p.i on the first line that does not belong to the loop.
func (p *parser) readLoop() {
	var headers []string
	for p.i < len(p.lines) {
		line := strings.TrimSpace(p.lines[p.i])
		if line == "" || strings.HasPrefix(line, "#") {
			p.i++
			continue
		}
		if !strings.HasPrefix(line, "_") {
			break
		}
		headers = append(headers, line)
		p.i++
	}
	if len(headers) == 0 {
		return
	}

	var rows []Row
	for p.i < len(p.lines) {
		line := strings.TrimSpace(p.lines[p.i])
		if line == "" || strings.HasPrefix(line, "#") {
			p.i++
			continue
		}
		if line == "loop_" || (strings.HasPrefix(line, "_") && !strings.ContainsAny(line, " \t")) {
			break
		}

		values := Tokenize(line)
		row := make(Row, len(headers))
		for j, h := range headers {
			v := ""
			if j < len(values) {
				v = unquote(values[j])
			}
			row[h] = v
		}
		rows = append(rows, row)
		p.i++
	}
	if len(rows) == 0 {
		return
	}

	category := CategoryOf(headers[0])
	p.doc.loops[category] = &Loop{
		Category: category,
		Headers:  headers,
		Rows:     rows,
	}
}

// unquote removes one pair of matching single or double quotes wrapping s.
func unquote(s string) string {
	for _, q := range []string{`"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			if len(s) < 2 {
				return ""
			}
			return s[1 : len(s)-1]
		}
	}
	return s
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
