package render

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/tanvi/stepflow/internal/schema"
)

// EncodeJSONL writes the rendered sequence as line-delimited JSON: one step
// object per line, in position order. Pure formatting, no side effects.
func EncodeJSONL(w io.Writer, steps []schema.Step) error {
	enc := json.NewEncoder(w)
	for _, s := range steps {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSONL renders the sequence to a JSONL byte slice.
func MarshalJSONL(steps []schema.Step) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeJSONL(&buf, steps); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
