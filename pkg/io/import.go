package io

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/matzehuels/objgraph/pkg/codec"
	errs "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/serial"
)

// ReadTree decodes one tree from r using format f. ReadTree does not close r.
func ReadTree(r io.Reader, f codec.Format) (any, error) {
	return f.Decode(r)
}

// ImportFile reads the tree stored at path. A nil f selects the format from
// the file extension.
//
// A missing file yields FILE_NOT_FOUND; a file that does not parse yields
// INVALID_FORMAT with the path in the message.
func ImportFile(path string, f codec.Format) (any, error) {
	f, err := formatFor(path, f)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer file.Close()

	tree, err := ReadTree(file, f)
	if err != nil {
		code := errs.GetCode(err)
		if code == "" {
			code = errs.ErrCodeInvalidFormat
		}
		return nil, errs.Wrap(code, err, "read %s", path)
	}
	return tree, nil
}

// Load reads the file at path and rebuilds the object graph with m.
func Load(ctx context.Context, m *serial.Marshaller, path string) (any, error) {
	tree, err := ImportFile(path, nil)
	if err != nil {
		return nil, err
	}
	return m.Import(ctx, tree)
}

func formatFor(path string, f codec.Format) (codec.Format, error) {
	if f != nil {
		return f, nil
	}
	return codec.ForPath(path)
}
