package kubeconfig

import (
	"bytes"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// patch is a change to the original bytes, rendered when the document is
// encoded. A value patch rewrites src[start:end] with the current value of
// node; a record patch writes every key appended to record at the given
// indentation, replacing src[start:end] (an empty "{}" body, or nothing).
type patch struct {
	start, end int
	value      *yaml.Node
	record     *yaml.Node
	indent     int
}

// source indexes the original file by line.
type source struct {
	data  []byte
	lines []int // byte offset of each line start
	eol   string
}

func newSource(data []byte) *source {
	s := &source{data: data, lines: []int{0}, eol: "\n"}
	for i, b := range data {
		if b == '\n' {
			s.lines = append(s.lines, i+1)
		}
	}
	if bytes.Contains(data, []byte("\r\n")) {
		s.eol = "\r\n"
	}
	return s
}

// line returns line n (1-based) without its terminator.
func (s *source) line(n int) []byte {
	start := s.lines[n-1]
	end := len(s.data)
	if n < len(s.lines) {
		end = s.lines[n] - 1
	}
	return bytes.TrimSuffix(s.data[start:end], []byte("\r"))
}

func (s *source) lineEnd(n int) int {
	return s.lines[n-1] + len(s.line(n))
}

// offset converts a yaml.v3 position (1-based line, 1-based rune column)
// into a byte offset.
func (s *source) offset(line, column int) (int, bool) {
	if line < 1 || line > len(s.lines) || column < 1 {
		return 0, false
	}
	l := s.line(line)
	i := 0
	for c := 1; c < column; c++ {
		if i >= len(l) {
			return 0, false
		}
		_, size := utf8.DecodeRune(l[i:])
		i += size
	}
	return s.lines[line-1] + i, true
}

// lastNestedLine returns the last line after from that still belongs to an
// entry whose key is indented by indent. Sequence items at the key's own
// indentation count when dashes is set. Trailing blank and comment lines are
// left out.
func (s *source) lastNestedLine(from, indent int, dashes bool) int {
	last := from
	for n := from + 1; n <= len(s.lines); n++ {
		l := s.line(n)
		trimmed := bytes.TrimLeft(l, " \t")
		if len(trimmed) == 0 || trimmed[0] == '#' {
			continue
		}
		in := len(l) - len(bytes.TrimLeft(l, " "))
		if in > indent || (dashes && in == indent && l[in] == '-') {
			last = n
			continue
		}
		break
	}
	return last
}

// valueSpan returns the byte range of the scalar v, the value of key.
func (s *source) valueSpan(key, v *yaml.Node) (int, int, bool) {
	if v.Kind != yaml.ScalarNode || v.Anchor != "" || v.Line == 0 || key.Line == 0 {
		return 0, 0, false
	}
	start, ok := s.offset(v.Line, v.Column)
	if !ok {
		return 0, 0, false
	}
	indent := key.Column - 1

	switch {
	case v.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0:
		return start, s.lineEnd(s.lastNestedLine(v.Line, indent, false)), true
	case v.Style&yaml.DoubleQuotedStyle != 0:
		end := closingQuote(s.data, start, '"')
		return start, end, end > start
	case v.Style&yaml.SingleQuotedStyle != 0:
		end := closingQuote(s.data, start, '\'')
		return start, end, end > start
	case v.Tag == "!!null" && v.Value == "":
		// "key:" with nothing after it has no text to replace.
		return 0, 0, false
	}

	last := s.lastNestedLine(v.Line, indent, false)
	if last == v.Line {
		return start, s.plainEnd(start, s.lineEnd(v.Line)), true
	}
	return start, s.plainEnd(s.lines[last-1], s.lineEnd(last)), true
}

// plainEnd trims a trailing comment and whitespace from data[from:to].
func (s *source) plainEnd(from, to int) int {
	text := s.data[from:to]
	for i := 1; i < len(text); i++ {
		if text[i] == '#' && (text[i-1] == ' ' || text[i-1] == '\t') {
			text = text[:i]
			break
		}
	}
	return from + len(bytes.TrimRight(text, " \t"))
}

// closingQuote returns the offset just past the quote closing the scalar
// opened at start, or -1.
func closingQuote(data []byte, start int, quote byte) int {
	for i := start + 1; i < len(data); i++ {
		switch {
		case quote == '"' && data[i] == '\\':
			i++
		case data[i] == quote:
			if quote == '\'' && i+1 < len(data) && data[i+1] == '\'' {
				i++
				continue
			}
			return i + 1
		}
	}
	return -1
}

// appendPoint returns where keys appended to a block mapping go: the end of
// the mapping's last line, at the indentation of its first key.
func (s *source) appendPoint(record *yaml.Node) (int, int, bool) {
	if record.Kind != yaml.MappingNode || record.Style&yaml.FlowStyle != 0 || len(record.Content) < 2 {
		return 0, 0, false
	}
	first := record.Content[0]
	if first.Line == 0 {
		return 0, 0, false
	}
	indent := first.Column - 1

	for i := len(record.Content) - 2; i >= 0; i -= 2 {
		k, v := record.Content[i], record.Content[i+1]
		if k.Line == 0 {
			continue
		}
		last := max(k.Line, v.Line)
		last = s.lastNestedLine(last, indent, v.Kind == yaml.SequenceNode && v.Style&yaml.FlowStyle == 0)
		return s.lineEnd(last), indent, true
	}
	return 0, 0, false
}

// emptyFlowSpan returns the range from just after "key:" to the end of an
// empty "{}" mapping, which an appended key replaces.
func (s *source) emptyFlowSpan(key, record *yaml.Node) (int, int, bool) {
	if record.Kind != yaml.MappingNode || record.Style&yaml.FlowStyle == 0 || len(record.Content) != 0 || record.Line == 0 {
		return 0, 0, false
	}
	open, ok := s.offset(record.Line, record.Column)
	if !ok || s.data[open] != '{' {
		return 0, 0, false
	}
	end := bytes.IndexByte(s.data[open:], '}')
	if end < 0 {
		return 0, 0, false
	}
	start := open
	for start > 0 && (s.data[start-1] == ' ' || s.data[start-1] == '\t') {
		start--
	}
	return start, open + end + 1, key.Line == record.Line
}

// patchValue records that the scalar v, the value of key, is about to change.
// It must run before v is modified.
func (d *Document) patchValue(key, v *yaml.Node) {
	if d.broken || d.patched[v] {
		return
	}
	if v.Line == 0 {
		// Appended during this run; its record patch renders it.
		return
	}
	start, end, ok := d.src.valueSpan(key, v)
	if !ok {
		d.broken = true
		return
	}
	d.patched[v] = true
	d.patches = append(d.patches, patch{start: start, end: end, value: v})
}

// patchRecord records that keys are about to be appended to record, the
// value of key. It must run before record is modified.
func (d *Document) patchRecord(key, record *yaml.Node) {
	if d.broken || d.patched[record] {
		return
	}
	p := patch{record: record}
	if start, end, ok := d.src.emptyFlowSpan(key, record); ok {
		p.start, p.end, p.indent = start, end, key.Column-1+2
		record.Style &^= yaml.FlowStyle
	} else if at, indent, ok := d.src.appendPoint(record); ok {
		p.start, p.end, p.indent = at, at, indent
	} else {
		d.broken = true
		return
	}
	d.patched[record] = true
	d.patches = append(d.patches, p)
}

// splice renders the patches into the original bytes. It reports false when
// the result would not describe the patched node tree.
func (d *Document) splice() ([]byte, bool) {
	if d.broken || d.src == nil {
		return nil, false
	}
	patches := append([]patch(nil), d.patches...)
	sort.SliceStable(patches, func(i, j int) bool { return patches[i].start < patches[j].start })

	var buf bytes.Buffer
	pos := 0
	for _, p := range patches {
		if p.start < pos {
			return nil, false
		}
		text, ok := d.render(p)
		if !ok {
			return nil, false
		}
		buf.Write(d.src.data[pos:p.start])
		buf.WriteString(text)
		pos = p.end
	}
	buf.Write(d.src.data[pos:])
	out := buf.Bytes()

	want, err := d.encodeTree()
	if err != nil {
		return nil, false
	}
	reparsed, err := ParseDocument(out)
	if err != nil {
		return nil, false
	}
	got, err := reparsed.encodeTree()
	if err != nil || !bytes.Equal(want, got) {
		return nil, false
	}
	return out, true
}

func (d *Document) render(p patch) (string, bool) {
	if p.value != nil {
		return renderScalar(p.value)
	}

	var b strings.Builder
	pad := strings.Repeat(" ", p.indent)
	for i := 0; i+1 < len(p.record.Content); i += 2 {
		k, v := p.record.Content[i], p.record.Content[i+1]
		if k.Line != 0 {
			continue
		}
		key, ok := renderScalar(k)
		if !ok {
			return "", false
		}
		value, ok := renderScalar(v)
		if !ok {
			return "", false
		}
		b.WriteString(d.src.eol + pad + key + ": " + value)
	}
	return b.String(), true
}

// renderScalar encodes n the way yaml.v3 would write it inline. Scalars that
// need more than one line are refused.
func renderScalar(n *yaml.Node) (string, bool) {
	if n.Kind != yaml.ScalarNode {
		return "", false
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	err := enc.Encode(&yaml.Node{Kind: yaml.ScalarNode, Tag: n.Tag, Style: n.Style, Value: n.Value})
	if err == nil {
		err = enc.Close()
	}
	if err != nil {
		return "", false
	}
	text := strings.TrimSuffix(buf.String(), "\n")
	if strings.Contains(text, "\n") {
		return "", false
	}
	return text, true
}
