package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/objgraph/pkg/serial"
)

// TOML writes the tree as a TOML document. The root must be a record, and
// nil values are dropped because TOML has no null. Keys come back sorted.
var TOML Format = tomlFormat{}

type tomlFormat struct{}

func (tomlFormat) Name() string         { return "toml" }
func (tomlFormat) Extensions() []string { return []string{".toml"} }

func (f tomlFormat) Encode(w io.Writer, tree any) error {
	root, err := toTOMLValue(serial.Detach(tree))
	if err != nil {
		return encodeError(f, err)
	}
	table, ok := root.(map[string]any)
	if !ok {
		return encodeError(f, fmt.Errorf("top-level value must be a record, got %T", tree))
	}
	if err := toml.NewEncoder(w).Encode(table); err != nil {
		return encodeError(f, err)
	}
	return nil
}

func (f tomlFormat) Decode(r io.Reader) (any, error) {
	var table map[string]any
	if _, err := toml.NewDecoder(r).Decode(&table); err != nil {
		return nil, decodeError(f, err)
	}
	return fromTOMLValue(table), nil
}

func toTOMLValue(v any) (any, error) {
	switch x := v.(type) {
	case *serial.Record:
		out := make(map[string]any, x.Len())
		for k, fv := range x.All() {
			if fv == nil {
				continue
			}
			tv, err := toTOMLValue(fv)
			if err != nil {
				return nil, err
			}
			out[k] = tv
		}
		return out, nil
	case map[string]any:
		return toTOMLValue(serial.RecordOf(x))
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			if item == nil {
				return nil, errors.New("TOML arrays cannot hold null values")
			}
			tv, err := toTOMLValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = tv
		}
		return out, nil
	}
	return v, nil
}

func fromTOMLValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		r := serial.RecordOf(x)
		for k, fv := range r.All() {
			r.Set(k, fromTOMLValue(fv))
		}
		return r
	case []map[string]any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = fromTOMLValue(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = fromTOMLValue(item)
		}
		return out
	}
	return v
}
