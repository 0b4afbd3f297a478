// Package xmlrpc implements the Standard Profile's wire format: XML-RPC 1.0
// method calls, responses, and faults, translated to and from
// sampvalue.Value. Per spec §1 this codec is the one piece of "assumed as a
// library primitive" wire plumbing the project has to supply itself — no
// XML-RPC library appears anywhere in the retrieval pack, so it is built
// directly on encoding/xml (see DESIGN.md).
package xmlrpc

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lvalerom/samphub/sampvalue"
)

// EncodeValue renders v as an XML-RPC <value> element. SAMP values are
// always strings, arrays, or structs on this side of the wire; v must
// already be a validated sampvalue.Value.
func EncodeValue(b *strings.Builder, v sampvalue.Value) {
	b.WriteString("<value>")
	switch t := v.(type) {
	case string:
		b.WriteString("<string>")
		xml.EscapeText(asWriter(b), []byte(t))
		b.WriteString("</string>")
	case []sampvalue.Value:
		b.WriteString("<array><data>")
		for _, elem := range t {
			EncodeValue(b, elem)
		}
		b.WriteString("</data></array>")
	case *sampvalue.Mapping:
		b.WriteString("<struct>")
		for _, key := range t.Keys() {
			val, _ := t.Get(key)
			b.WriteString("<member><name>")
			xml.EscapeText(asWriter(b), []byte(key))
			b.WriteString("</name>")
			EncodeValue(b, val)
			b.WriteString("</member>")
		}
		b.WriteString("</struct>")
	}
	b.WriteString("</value>")
}

// asWriter adapts a *strings.Builder to io.Writer for xml.EscapeText, which
// wants an io.Writer rather than returning a string.
func asWriter(b *strings.Builder) io.Writer { return b }

// rawValue mirrors the shape of an XML-RPC <value> element closely enough
// for encoding/xml to unmarshal any of its variants; exactly one field will
// be non-nil/non-empty for a well-formed document.
type rawValue struct {
	String  *string    `xml:"string"`
	Int     *string    `xml:"int"`
	I4      *string    `xml:"i4"`
	Double  *string    `xml:"double"`
	Boolean *string    `xml:"boolean"`
	Array   *rawArray  `xml:"array"`
	Struct  *rawStruct `xml:"struct"`
	// Text is the content when <value> has no typed child, which XML-RPC
	// treats as an implicit string. toSampValue checks the typed fields
	// first, so a <value> with both a typed child and chardata (not
	// well-formed XML-RPC, but encoding/xml will still populate both)
	// always resolves to the typed field.
	Text string `xml:",chardata"`
}

type rawArray struct {
	Data struct {
		Values []rawValue `xml:"value"`
	} `xml:"data"`
}

type rawStruct struct {
	Members []rawMember `xml:"member"`
}

type rawMember struct {
	Name  string   `xml:"name"`
	Value rawValue `xml:"value"`
}

// toSampValue converts a parsed rawValue into a sampvalue.Value, coercing
// XML-RPC's numeric and boolean scalars into SAMP's string convention per
// spec §4.3 ("numerics and booleans are coerced into the SAMP string form").
func (rv *rawValue) toSampValue() (sampvalue.Value, error) {
	switch {
	case rv.String != nil:
		return *rv.String, nil
	case rv.Int != nil:
		return strings.TrimSpace(*rv.Int), nil
	case rv.I4 != nil:
		return strings.TrimSpace(*rv.I4), nil
	case rv.Double != nil:
		return strings.TrimSpace(*rv.Double), nil
	case rv.Boolean != nil:
		n, err := strconv.Atoi(strings.TrimSpace(*rv.Boolean))
		if err != nil {
			return nil, fmt.Errorf("malformed XML-RPC boolean %q: %w", *rv.Boolean, err)
		}
		return sampvalue.EncodeBool(n != 0), nil
	case rv.Array != nil:
		list := make([]sampvalue.Value, 0, len(rv.Array.Data.Values))
		for i := range rv.Array.Data.Values {
			elem, err := rv.Array.Data.Values[i].toSampValue()
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	case rv.Struct != nil:
		m := sampvalue.NewMapping()
		for _, member := range rv.Struct.Members {
			val, err := member.Value.toSampValue()
			if err != nil {
				return nil, err
			}
			m.Set(member.Name, val)
		}
		return m, nil
	default:
		return rv.Text, nil
	}
}

// DecodeValue parses a single <value>...</value> element from data.
func DecodeValue(data []byte) (sampvalue.Value, error) {
	var rv rawValue
	if err := xml.Unmarshal(data, &rv); err != nil {
		return nil, fmt.Errorf("decoding XML-RPC value: %w", err)
	}
	return rv.toSampValue()
}
