package sampvalue

import (
	"fmt"
	"math"
	"strconv"
)

// EncodeInt returns the SAMP int string representation of i.
func EncodeInt(i int64) string { return strconv.FormatInt(i, 10) }

// DecodeInt parses a SAMP int string.
func DecodeInt(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

// EncodeFloat returns the SAMP float string representation of f. It rejects
// ±Inf and NaN, which have no legal SAMP representation.
func EncodeFloat(f float64) (string, error) {
	if math.IsInf(f, 0) {
		return "", fmt.Errorf("infinite value not permitted in a SAMP float")
	}
	if math.IsNaN(f) {
		return "", fmt.Errorf("NaN not permitted in a SAMP float")
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

// DecodeFloat parses a SAMP float string.
func DecodeFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// EncodeBool returns the SAMP boolean string ("0" or "1") for b.
func EncodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// DecodeBool decodes a SAMP boolean string. Per the reference
// implementation, any string that isn't a decodable non-zero integer is
// treated as false rather than rejected outright.
func DecodeBool(s string) bool {
	n, err := DecodeInt(s)
	if err != nil {
		return false
	}
	return n != 0
}
