package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/matzehuels/objgraph/pkg/serial"
)

// CBOR writes RFC 8949 CBOR. Records are written as maps in insertion
// order; on decode keys come back sorted. Positive integers decode as
// uint64 and negative ones as int64.
var CBOR Format = cborFormat{}

type cborFormat struct{}

func (cborFormat) Name() string         { return "cbor" }
func (cborFormat) Extensions() []string { return []string{".cbor"} }

var (
	cborEnc = mustEncMode(cbor.EncOptions{})
	cborDec = mustDecMode(cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: 65535,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

func (f cborFormat) Encode(w io.Writer, tree any) error {
	if err := cborEnc.NewEncoder(w).Encode(cborValue(serial.Detach(tree))); err != nil {
		return encodeError(f, err)
	}
	return nil
}

func (f cborFormat) Decode(r io.Reader) (any, error) {
	var v any
	if err := cborDec.NewDecoder(r).Decode(&v); err != nil {
		return nil, decodeError(f, err)
	}
	out, err := fromCBORValue(v)
	if err != nil {
		return nil, decodeError(f, err)
	}
	return out, nil
}

// cborRecord marshals a record as a definite-length map in key order.
type cborRecord struct{ r *serial.Record }

func (c cborRecord) MarshalCBOR() ([]byte, error) {
	buf := appendCBORHead(nil, 0xa0, uint64(c.r.Len()))
	for k, v := range c.r.All() {
		kb, err := cborEnc.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := cborEnc.Marshal(cborValue(v))
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, vb...)
	}
	return buf, nil
}

// appendCBORHead appends an initial byte for major type major (already
// shifted into the top three bits) with argument n.
func appendCBORHead(b []byte, major byte, n uint64) []byte {
	switch {
	case n < 24:
		return append(b, major|byte(n))
	case n <= math.MaxUint8:
		return append(b, major|24, byte(n))
	case n <= math.MaxUint16:
		return binary.BigEndian.AppendUint16(append(b, major|25), uint16(n))
	case n <= math.MaxUint32:
		return binary.BigEndian.AppendUint32(append(b, major|26), uint32(n))
	}
	return binary.BigEndian.AppendUint64(append(b, major|27), n)
}

func cborValue(v any) any {
	switch x := v.(type) {
	case *serial.Record:
		return cborRecord{x}
	case map[string]any:
		return cborRecord{serial.RecordOf(x)}
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cborValue(item)
		}
		return out
	}
	return v
}

func fromCBORValue(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		r := serial.RecordOf(x)
		for k, fv := range r.All() {
			cv, err := fromCBORValue(fv)
			if err != nil {
				return nil, err
			}
			r.Set(k, cv)
		}
		return r, nil
	case map[any]any:
		return nil, fmt.Errorf("map with non-string keys")
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			cv, err := fromCBORValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	return v, nil
}
