package standard

import (
	"fmt"
	"time"

	"github.com/lvalerom/samphub/sampvalue"
)

// argReader extracts positional method arguments with a sticky first
// error, the same "remember the last failure, let callers keep going"
// shape as the teacher's httprest.lastErr field.
type argReader struct {
	args []sampvalue.Value
	pos  int
	err  error
}

func newArgReader(args []sampvalue.Value) *argReader {
	return &argReader{args: args}
}

func (r *argReader) str() string {
	if r.err != nil {
		return ""
	}
	if r.pos >= len(r.args) {
		r.err = fmt.Errorf("missing argument %d", r.pos)
		return ""
	}
	s, ok := r.args[r.pos].(string)
	if !ok {
		r.err = fmt.Errorf("argument %d is not a string", r.pos)
		return ""
	}
	r.pos++
	return s
}

// mapping returns an empty mapping, not an error, when the argument is
// absent entirely — several SAMP methods accept an optional trailing
// config mapping.
func (r *argReader) mapping() *sampvalue.Mapping {
	if r.err != nil {
		return nil
	}
	if r.pos >= len(r.args) {
		return sampvalue.NewMapping()
	}
	m, ok := r.args[r.pos].(*sampvalue.Mapping)
	if !ok {
		r.err = fmt.Errorf("argument %d is not a mapping", r.pos)
		return nil
	}
	r.pos++
	return m
}

// durationSeconds reads a SAMP int string argument and interprets it as a
// whole number of seconds, per callAndWait's timeout parameter.
func (r *argReader) durationSeconds() time.Duration {
	s := r.str()
	if r.err != nil {
		return 0
	}
	n, err := sampvalue.DecodeInt(s)
	if err != nil {
		r.err = fmt.Errorf("malformed timeout: %w", err)
		return 0
	}
	return time.Duration(n) * time.Second
}

func stringsToValues(ss []string) sampvalue.Value {
	vs := make([]sampvalue.Value, len(ss))
	for i, s := range ss {
		vs[i] = s
	}
	return vs
}
