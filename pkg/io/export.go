package io

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/objgraph/pkg/codec"
	errs "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/serial"
)

// WriteTree encodes tree with format f and writes it to w.
func WriteTree(w io.Writer, f codec.Format, tree any) error {
	return f.Encode(w, tree)
}

// ExportFile writes tree to path, creating parent directories as needed.
// A nil f selects the format from the file extension. The file is written
// to a temporary name first and renamed into place, so a failed encode
// never leaves a truncated file behind.
func ExportFile(path string, f codec.Format, tree any) error {
	f, err := formatFor(path, f)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "create %s", path)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errs.Wrap(errs.ErrCodeInternal, err, "chmod %s", tmp.Name())
	}

	if err := WriteTree(tmp, f, tree); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}

// Save exports v with m and writes the tree to path.
func Save(ctx context.Context, m *serial.Marshaller, path string, v any, opts ...serial.ExportOption) error {
	tree, err := m.Export(ctx, v, opts...)
	if err != nil {
		return err
	}
	return ExportFile(path, nil, tree)
}
