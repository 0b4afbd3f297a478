package sampvalue

import (
	"fmt"
	"net/url"
)

// Validate depth-first checks that v is a legal SAMP value: every leaf is a
// string restricted to the SAMP character set, every container is a list or
// a *Mapping, every mapping key is itself a legal SAMP string, and nil
// appears nowhere in the tree.
func Validate(v Value) error {
	return validatePath(v, "")
}

func validatePath(v Value, path string) error {
	switch t := v.(type) {
	case nil:
		return &MalformedValue{Reason: "null is not a legal SAMP value", Path: path}
	case string:
		return validateString(t, path)
	case []Value:
		for i, elem := range t {
			if err := validatePath(elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case *Mapping:
		for _, key := range t.Keys() {
			if err := validateString(key, joinPath(path, key)+" (key)"); err != nil {
				return err
			}
			val, _ := t.Get(key)
			if err := validatePath(val, joinPath(path, key)); err != nil {
				return err
			}
		}
		return nil
	default:
		return &MalformedValue{
			Reason: fmt.Sprintf("leaf of type %T is not a string, list, or mapping", t),
			Path:   path,
		}
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// IsStringChar reports whether c is legal inside a SAMP string: 0x09, 0x0A,
// 0x0D, or 0x20..0x7F. Ported directly from the reference implementation's
// character-range rule.
func IsStringChar(c byte) bool {
	switch c {
	case 0x09, 0x0A, 0x0D:
		return true
	default:
		return c >= 0x20 && c <= 0x7f
	}
}

func validateString(s, path string) error {
	for i := 0; i < len(s); i++ {
		if !IsStringChar(s[i]) {
			return &MalformedValue{
				Reason: fmt.Sprintf("character 0x%02x out of range", s[i]),
				Path:   path,
			}
		}
	}
	return nil
}

// CheckURL validates that s parses as an absolute URL, as required for a
// client-declared callback endpoint. Mirrors the reference implementation's
// SampUtils.checkUrl.
func CheckURL(s string) error {
	if s == "" {
		return fmt.Errorf("empty URL")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", s, err)
	}
	if !parsed.IsAbs() {
		return fmt.Errorf("invalid URL %q: not absolute", s)
	}
	return nil
}
