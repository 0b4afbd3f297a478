package codex

import "github.com/lvalerom/samphub/sampvalue"

// JSONCodex is the Web Profile's wire encoding: SAMP's restricted JSON
// dialect (sampvalue.ToJSON/FromJSON). Directly descended from the teacher's
// codex/json.go, generalized from encoding/json's arbitrary Go values to the
// SAMP value model.
type JSONCodex struct{}

func (JSONCodex) MIME() string { return "application/json" }

func (JSONCodex) Marshal(v sampvalue.Value) ([]byte, error) {
	text, err := sampvalue.ToJSON(v, false)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

func (JSONCodex) Unmarshal(data []byte) (sampvalue.Value, error) {
	return sampvalue.FromJSON(string(data))
}

func (c JSONCodex) Transmarshal(source Codex, data []byte) ([]byte, error) {
	if _, ok := source.(JSONCodex); ok {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	v, err := source.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return c.Marshal(v)
}
