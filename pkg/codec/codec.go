// Package codec encodes primitive trees produced by package serial as JSON,
// YAML, TOML or CBOR, and decodes them back into trees that
// [serial.Marshaller.Import] accepts.
//
// Encoders detach the tree first (see [serial.Detach]), so shared and cyclic
// records are written once and referenced by stubs afterwards. Decoders
// return objects as *serial.Record. JSON and YAML keep key order; TOML and
// CBOR return keys sorted, which import tolerates.
//
// # Usage
//
//	f, err := codec.ForPath("scene.yaml")
//	if err != nil {
//	    return err
//	}
//	data, err := codec.Marshal(f, tree)
package codec

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	errs "github.com/matzehuels/objgraph/pkg/errors"
)

// Format is one encoding of primitive trees.
type Format interface {
	// Name returns the canonical lowercase name, e.g. "json".
	Name() string
	// Extensions returns the file extensions handled, with leading dots.
	Extensions() []string
	// Encode writes tree to w.
	Encode(w io.Writer, tree any) error
	// Decode reads one tree from r.
	Decode(r io.Reader) (any, error)
}

var formats = []Format{JSON, YAML, TOML, CBOR}

// Formats returns every supported format.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// Names returns the canonical names of every supported format.
func Names() []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.Name()
	}
	return names
}

// Lookup returns the format called name. Extensions without the dot
// ("yml") are accepted too.
func Lookup(name string) (Format, error) {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	for _, f := range formats {
		if f.Name() == name {
			return f, nil
		}
		for _, ext := range f.Extensions() {
			if ext[1:] == name {
				return f, nil
			}
		}
	}
	return nil, errs.New(errs.ErrCodeUnsupported, "unknown format %q (supported: %s)", name, strings.Join(Names(), ", "))
}

// ForPath picks a format from the extension of path.
func ForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, errs.New(errs.ErrCodeUnsupported, "cannot infer format of %q: no extension", path)
	}
	for _, f := range formats {
		for _, e := range f.Extensions() {
			if e == ext {
				return f, nil
			}
		}
	}
	return nil, errs.New(errs.ErrCodeUnsupported, "cannot infer format of %q (supported: %s)", path, strings.Join(Names(), ", "))
}

// Marshal encodes tree into a byte slice.
func Marshal(f Format, tree any) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Encode(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a tree from data.
func Unmarshal(f Format, data []byte) (any, error) {
	return f.Decode(bytes.NewReader(data))
}

func decodeError(f Format, err error) error {
	return errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode %s", f.Name())
}

func encodeError(f Format, err error) error {
	if errs.GetCode(err) != "" {
		return err
	}
	return errs.Wrap(errs.ErrCodeInvalidInput, err, "encode %s", f.Name())
}
