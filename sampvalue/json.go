package sampvalue

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ToJSON serializes a validated SAMP value to JSON text. Every string leaf
// becomes a JSON string; lists become arrays; mappings become objects with
// keys in their original insertion order. multiline selects a two-space
// indented rendering instead of a single compact line.
//
// Unlike general-purpose JSON, the output (and the only input FromJSON
// accepts) never contains a bare number, boolean, or null: those aren't
// legal SAMP scalars, so toJson/fromJson form an identity pair over
// validated values (spec invariant 2).
func ToJSON(v Value, multiline bool) (string, error) {
	if err := Validate(v); err != nil {
		return "", err
	}
	var b strings.Builder
	indent := -1
	if multiline {
		indent = 2
	}
	writeJSON(&b, v, indent, 0)
	return b.String(), nil
}

func writeJSON(b *strings.Builder, v Value, indent, depth int) {
	switch t := v.(type) {
	case string:
		b.WriteString(strconv.Quote(t))
	case []Value:
		writeJSONList(b, t, indent, depth)
	case *Mapping:
		writeJSONMapping(b, t, indent, depth)
	}
}

func writeJSONList(b *strings.Builder, list []Value, indent, depth int) {
	if len(list) == 0 {
		b.WriteString("[]")
		return
	}
	nl, pad, childPad := jsonSpacing(indent, depth)
	b.WriteString("[" + nl)
	for i, elem := range list {
		b.WriteString(childPad)
		writeJSON(b, elem, indent, depth+1)
		if i < len(list)-1 {
			b.WriteString(",")
		}
		b.WriteString(nl)
	}
	b.WriteString(pad + "]")
}

func writeJSONMapping(b *strings.Builder, m *Mapping, indent, depth int) {
	keys := m.Keys()
	if len(keys) == 0 {
		b.WriteString("{}")
		return
	}
	nl, pad, childPad := jsonSpacing(indent, depth)
	b.WriteString("{" + nl)
	for i, k := range keys {
		val, _ := m.Get(k)
		b.WriteString(childPad)
		b.WriteString(strconv.Quote(k))
		b.WriteString(": ")
		writeJSON(b, val, indent, depth+1)
		if i < len(keys)-1 {
			b.WriteString(",")
		}
		b.WriteString(nl)
	}
	b.WriteString(pad + "}")
}

func jsonSpacing(indent, depth int) (nl, pad, childPad string) {
	if indent < 0 {
		return "", "", ""
	}
	return "\n", strings.Repeat(" ", indent*depth), strings.Repeat(" ", indent*(depth+1))
}

// FromJSON parses text as a SAMP value, accepting only the restricted JSON
// dialect ToJSON produces: objects, arrays, and double-quoted strings. A
// bare number, boolean, or null anywhere in the document is a parse error,
// not a successfully-decoded SAMP value.
func FromJSON(text string) (Value, error) {
	p := &jsonParser{text: text}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.text) {
		return nil, fmt.Errorf("trailing data at offset %d", p.pos)
	}
	return v, nil
}

type jsonParser struct {
	text string
	pos  int
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.text) {
		switch p.text[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) parseValue() (Value, error) {
	if p.pos >= len(p.text) {
		return nil, fmt.Errorf("unexpected end of input")
	}
	switch p.text[p.pos] {
	case '"':
		return p.parseString()
	case '[':
		return p.parseList()
	case '{':
		return p.parseMapping()
	default:
		return nil, fmt.Errorf(
			"unexpected character %q at offset %d: only strings, arrays, and objects are legal SAMP JSON",
			p.text[p.pos], p.pos)
	}
}

func (p *jsonParser) parseString() (string, error) {
	start := p.pos
	if p.text[p.pos] != '"' {
		return "", fmt.Errorf("expected string at offset %d", p.pos)
	}
	p.pos++
	for p.pos < len(p.text) {
		switch p.text[p.pos] {
		case '\\':
			p.pos += 2
		case '"':
			p.pos++
			raw := p.text[start:p.pos]
			s, err := strconv.Unquote(raw)
			if err != nil {
				return "", fmt.Errorf("malformed string literal at offset %d: %w", start, err)
			}
			if !utf8.ValidString(s) {
				return "", fmt.Errorf("invalid UTF-8 in string literal at offset %d", start)
			}
			return s, nil
		default:
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string starting at offset %d", start)
}

func (p *jsonParser) parseList() ([]Value, error) {
	p.pos++ // consume '['
	list := []Value{}
	p.skipSpace()
	if p.pos < len(p.text) && p.text[p.pos] == ']' {
		p.pos++
		return list, nil
	}
	for {
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
		p.skipSpace()
		if p.pos >= len(p.text) {
			return nil, fmt.Errorf("unterminated array")
		}
		switch p.text[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return list, nil
		default:
			return nil, fmt.Errorf("expected ',' or ']' at offset %d", p.pos)
		}
	}
}

func (p *jsonParser) parseMapping() (*Mapping, error) {
	p.pos++ // consume '{'
	m := NewMapping()
	p.skipSpace()
	if p.pos < len(p.text) && p.text[p.pos] == '}' {
		p.pos++
		return m, nil
	}
	for {
		p.skipSpace()
		key, err := p.parseString()
		if err != nil {
			return nil, fmt.Errorf("expected object key: %w", err)
		}
		p.skipSpace()
		if p.pos >= len(p.text) || p.text[p.pos] != ':' {
			return nil, fmt.Errorf("expected ':' at offset %d", p.pos)
		}
		p.pos++
		p.skipSpace()
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		m.Set(key, val)
		p.skipSpace()
		if p.pos >= len(p.text) {
			return nil, fmt.Errorf("unterminated object")
		}
		switch p.text[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return m, nil
		default:
			return nil, fmt.Errorf("expected ',' or '}' at offset %d", p.pos)
		}
	}
}
