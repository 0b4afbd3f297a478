// Package codex generalizes the teacher's pluggable wire-encoding
// abstraction (originally "encode a Go value, decode a Go value") to SAMP
// values: a Codex knows how to turn a sampvalue.Value into bytes on some MIME
// type and back, and how to transcode bytes produced by a different Codex
// without round-tripping through a Go type in between.
package codex

import "github.com/lvalerom/samphub/sampvalue"

// Codex is a pluggable SAMP value encoding.
type Codex interface {
	// MIME returns the content type this Codex produces and expects.
	MIME() string

	// Marshal encodes a validated SAMP value.
	Marshal(v sampvalue.Value) ([]byte, error)

	// Unmarshal decodes bytes produced by a Codex of this type into a SAMP
	// value.
	Unmarshal(data []byte) (sampvalue.Value, error)

	// Transmarshal re-encodes data (produced by source) into this Codex's
	// encoding, without requiring the caller to hold an intermediate SAMP
	// value.
	Transmarshal(source Codex, data []byte) ([]byte, error)
}
