// Package pkg provides the core libraries for objgraph object-graph marshalling.
//
// # Overview
//
// objgraph turns in-memory object graphs (values that share and cycle
// through pointers) into primitive trees built from records, lists and
// scalars, and rebuilds equivalent graphs from such trees. The pkg directory
// is organized into four areas:
//
//  1. [serial] - The marshaller: type classification, class registry,
//     export and import
//  2. [codec] and [io] - Encodings (JSON, YAML, TOML, CBOR) and file helpers
//  3. [store] and [docstore] - Persistence in key/value and document stores
//  4. [inspect] - Summaries and Graphviz drawings of trees
//
// # Architecture
//
// The typical data flow:
//
//	Go value (pointers, cycles, interfaces)
//	         ↓
//	    [serial] Export (records tagged with _class, _uid)
//	         ↓
//	    primitive tree
//	         ↓
//	    [codec] / [io] / [store] / [docstore]
//	         ↓
//	    [serial] Import (registry lookup, stubs resolved by _uid)
//	         ↓
//	Go value with the same sharing
//
// # Quick Start
//
// Register the types of a graph and round-trip it through a file:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/objgraph/pkg/io"
//	    "github.com/matzehuels/objgraph/pkg/serial"
//	)
//
//	reg := serial.NewRegistry()
//	reg.MustRegister(Lamp{}, serial.Module("studio"))
//	m := serial.New(reg)
//
//	if err := io.Save(ctx, m, "rig.yaml", lamp); err != nil {
//	    return err
//	}
//	v, err := io.Load(ctx, m, "rig.yaml")
//
// # Main Packages
//
// [serial] - Classifies Go values, keeps the class registry, exports graphs
// to trees with an identity cache, and imports trees back. Shared values are
// written once; later references become stubs carrying only the class tags
// and _uid.
//
// [codec] - Format implementations. JSON and YAML keep record key order;
// CBOR and TOML round-trip the same trees.
//
// [io] - Reading and writing trees and graphs as files, with atomic writes.
//
// [store] - Named snapshots over file, Redis, SQLite or null backends, with
// retry on transient errors and hit/miss hooks.
//
// [docstore] - Flattening a tree into one MongoDB document per record and
// reassembling it with sharing intact.
//
// [inspect] - Record counts per class and DOT, SVG or PNG renderings.
//
// ## Supporting Packages
//
// [errors] - Coded errors shared by every package.
//
// [observability] - Hooks for store metrics.
//
// [buildinfo] - Version information stamped at build time.
//
// [serial]: github.com/matzehuels/objgraph/pkg/serial
// [codec]: github.com/matzehuels/objgraph/pkg/codec
// [io]: github.com/matzehuels/objgraph/pkg/io
// [store]: github.com/matzehuels/objgraph/pkg/store
// [docstore]: github.com/matzehuels/objgraph/pkg/docstore
// [inspect]: github.com/matzehuels/objgraph/pkg/inspect
// [errors]: github.com/matzehuels/objgraph/pkg/errors
// [observability]: github.com/matzehuels/objgraph/pkg/observability
// [buildinfo]: github.com/matzehuels/objgraph/pkg/buildinfo
package pkg
