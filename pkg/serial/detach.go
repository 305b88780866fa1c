package serial

import (
	"fmt"
)

// Detach returns a copy of tree without shared records. The first time a
// *Record is reached it is copied in full; every later occurrence becomes
// its [Record.Stub]. The copy is a plain tree that any encoder can write,
// and [Marshaller.Import] rebuilds the sharing from the `_uid` tags.
//
// Stubs only carry identity if the records have `_uid` tags, which export
// always writes.
func Detach(tree any) any {
	seen := make(map[*Record]bool)

	var walk func(v any) any
	walk = func(v any) any {
		switch x := v.(type) {
		case *Record:
			if seen[x] {
				return x.Stub()
			}
			seen[x] = true
			out := newRecordCap(x.Len())
			for k, fv := range x.All() {
				out.Set(k, walk(fv))
			}
			return out
		case []any:
			out := make([]any, len(x))
			for i, item := range x {
				out[i] = walk(item)
			}
			return out
		case map[string]any:
			out := make(map[string]any, len(x))
			for _, k := range sortedKeys(x) {
				out[k] = walk(x[k])
			}
			return out
		}
		return v
	}
	return walk(tree)
}

// Visit is one record reached by [Walk].
type Visit struct {
	Record *Record
	Path   string
	Depth  int
	// Repeat is set when the record was reached before, by pointer or by
	// `_uid`. Walk does not descend into repeats.
	Repeat bool
}

// Walk calls fn for every record in tree in depth-first order. Returning
// false from fn skips the record's children.
func Walk(tree any, fn func(Visit) bool) {
	seenPtr := make(map[*Record]bool)
	seenUID := make(map[int64]bool)

	var walk func(v any, path string, depth int)
	walk = func(v any, path string, depth int) {
		switch x := v.(type) {
		case *Record:
			uid, hasUID := x.UID()
			repeat := seenPtr[x] || (hasUID && seenUID[uid])
			seenPtr[x] = true
			if hasUID && !x.IsStub() {
				seenUID[uid] = true
			}
			if !fn(Visit{Record: x, Path: path, Depth: depth, Repeat: repeat}) || repeat {
				return
			}
			for k, fv := range x.Fields() {
				walk(fv, path+"."+k, depth+1)
			}
		case []any:
			for i, item := range x {
				walk(item, fmt.Sprintf("%s[%d]", path, i), depth+1)
			}
		case map[string]any:
			walk(RecordOf(x), path, depth)
		}
	}
	walk(tree, "$", 0)
}
