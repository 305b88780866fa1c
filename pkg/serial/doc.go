// Package serial converts in-memory object graphs into primitive trees and
// rebuilds object graphs from them.
//
// A primitive tree is made of *[Record] values (ordered string-keyed
// mappings), []any sequences, scalars, and host-registered external values.
// Codecs in package codec turn such trees into JSON, YAML, TOML or CBOR.
//
// # Export
//
// [Marshaller.Export] walks a value and classifies every reachable value
// with a [Classifier]:
//
//   - none: nil and nil pointers, maps, slices and interfaces
//   - basic: booleans, numbers, strings, registered basic types
//   - sequence: slices and arrays, exported item by item
//   - external: registered external types, passed through as themselves
//   - complex: structs and string-keyed maps, exported as records
//
// Each record starts with four reserved keys:
//
//	_class            class name, e.g. "Joint"
//	_class_namespace  ancestry, most derived first, e.g. "Joint.Node"
//	_class_module     module the class lives in, e.g. "rig"
//	_uid              identity of the source object within this export
//
// Exported struct fields follow in declaration order. Embedded structs are
// flattened in place and also define the class ancestry: a struct that
// embeds Node has Node as its base. Fields whose serialized name starts
// with "_" and fields tagged `serial:"-"` are never exported.
//
// An object reached twice yields the same *Record both times, so the tree
// may contain cycles. [Detach] turns it into a plain tree before encoding.
//
// # Import
//
// [Marshaller.Import] resolves each record through a [Registry], constructs
// a fresh instance and assigns the fields. Records with the same `_uid`
// resolve to one instance, which restores shared references and cycles.
// Failures are isolated: a record whose class is unknown is left nil, the
// rest of the tree is still rebuilt, and the caller gets a *[PartialError]
// next to the result.
//
// # Registry
//
// Classes are registered explicitly, there is no global registry:
//
//	reg := serial.NewRegistry()
//	reg.MustRegister(rig.Node{})
//	reg.MustRegister(rig.Joint{})
//	m := serial.New(reg)
//
// Registering or replacing a class invalidates the memoized name indexes,
// so a host that reloads its type definitions keeps importing without a
// restart.
package serial
