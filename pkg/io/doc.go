// Package io reads and writes primitive trees and object graphs as files.
//
// # Overview
//
// This package ties the marshaller in [serial] to the encodings in [codec]:
//
//   - [ReadTree] and [WriteTree] move trees through any reader or writer
//   - [ImportFile] and [ExportFile] do the same for file paths, picking the
//     format from the extension unless one is given
//   - [Load] and [Save] add the object-graph step on top
//
// # Files
//
// [ExportFile] creates missing parent directories. [ImportFile] reports a
// missing file with FILE_NOT_FOUND and a file it cannot parse with
// INVALID_FORMAT, so callers can tell "nothing saved yet" from "corrupt":
//
//	tree, err := io.ImportFile("rig.yaml", nil)
//	if errors.Is(err, errors.ErrCodeFileNotFound) {
//	    // start from scratch
//	}
//
// # Graphs
//
// [Save] exports a value and writes it; [Load] reads a file and imports it.
// Load returns a partially rebuilt graph together with a
// *serial.PartialError when some records could not be rebuilt, exactly like
// [serial.Marshaller.Import].
//
//	if err := io.Save(ctx, m, "out/rig.json", rig); err != nil {
//	    return err
//	}
//	v, err := io.Load(ctx, m, "out/rig.json")
//
// [serial]: github.com/matzehuels/objgraph/pkg/serial
// [codec]: github.com/matzehuels/objgraph/pkg/codec
package io
