package sampvalue

import "strings"

// FormatPretty renders v as a deterministic, human-readable multiline string
// for diagnostics. It is not meant to be parsed back; use ToJSON/FromJSON for
// a round-trippable encoding. indent is the number of spaces added per level
// of nesting.
func FormatPretty(v Value, indent int) string {
	var b strings.Builder
	writePretty(&b, v, indent, 0)
	return b.String()
}

func writePretty(b *strings.Builder, v Value, indent, depth int) {
	pad := strings.Repeat(" ", indent*depth)
	childPad := strings.Repeat(" ", indent*(depth+1))

	switch t := v.(type) {
	case string:
		b.WriteString(pad)
		b.WriteString(t)
	case []Value:
		if len(t) == 0 {
			b.WriteString(pad + "[]")
			return
		}
		b.WriteString(pad + "[\n")
		for i, elem := range t {
			writePretty(b, elem, indent, depth+1)
			if i < len(t)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(pad + "]")
	case *Mapping:
		keys := t.Keys()
		if len(keys) == 0 {
			b.WriteString(pad + "{}")
			return
		}
		b.WriteString(pad + "{\n")
		for i, k := range keys {
			val, _ := t.Get(k)
			b.WriteString(childPad + k + ": ")
			switch val.(type) {
			case string:
				b.WriteString(val.(string))
			default:
				b.WriteString("\n")
				writePretty(b, val, indent, depth+2)
			}
			if i < len(keys)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(pad + "}")
	default:
		b.WriteString(pad + "<invalid>")
	}
}
