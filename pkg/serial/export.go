package serial

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	errs "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/observability"
)

// identity is the key of the export arena: the address of a pointer or map
// together with its type, so that a struct and its first field (which share
// an address) stay distinct.
type identity struct {
	ptr uintptr
	typ reflect.Type
}

func identityOf(v reflect.Value) (identity, bool) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		if v.IsNil() {
			return identity{}, false
		}
		// Distinct pointers to zero-size values may share an address.
		if v.Kind() == reflect.Pointer && v.Type().Elem().Size() == 0 {
			return identity{}, false
		}
		return identity{ptr: v.Pointer(), typ: v.Type()}, true
	}
	return identity{}, false
}

// exportArena is the per-call identity cache. Every record it hands out gets
// the next arena index as its `_uid`, so uids are unique within one export
// and stable for a given traversal order.
type exportArena struct {
	next    int64
	records map[identity]*Record
}

func newExportArena() *exportArena {
	return &exportArena{records: make(map[identity]*Record)}
}

func (a *exportArena) lookup(id identity) (*Record, bool) {
	r, ok := a.records[id]
	return r, ok
}

func (a *exportArena) allocate() int64 {
	a.next++
	return a.next
}

func (a *exportArena) store(id identity, r *Record) {
	a.records[id] = r
}

type exporter struct {
	m     *Marshaller
	opts  exportOptions
	arena *exportArena
}

// Export converts v into a primitive tree of *Record, []any, scalars and
// external values.
//
// Every object reachable through pointers or maps is exported once; later
// references share the same *Record, which is how cycles are represented.
// Export is all-or-nothing: any unsupported value fails the whole call.
func (m *Marshaller) Export(ctx context.Context, v any, opts ...ExportOption) (any, error) {
	o := defaultExportOptions()
	for _, opt := range opts {
		opt(&o)
	}

	rootType := "nil"
	if v != nil {
		rootType = reflect.TypeOf(v).String()
	}
	hooks := observability.Serial()
	hooks.OnExportStart(ctx, rootType)
	start := time.Now()

	e := &exporter{m: m, opts: o, arena: newExportArena()}
	out, err := e.export(reflect.ValueOf(v), "$", 0)

	hooks.OnExportComplete(ctx, rootType, int(e.arena.next), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *exporter) export(v reflect.Value, path string, depth int) (any, error) {
	if depth > e.m.maxDepth {
		return nil, errs.New(errs.ErrCodeDepthExceeded, "export exceeded max depth %d at %s", e.m.maxDepth, path)
	}

	v = unwrapInterface(v)
	id, hasID := identityOf(v)
	if hasID {
		if r, ok := e.arena.lookup(id); ok {
			return r, nil
		}
	}

	kind, err := e.m.classifier.classify(v)
	if err != nil {
		return nil, unsupported(v.Type(), path)
	}

	switch kind {
	case KindNone:
		return nil, nil
	case KindBasic:
		return basicValue(v), nil
	case KindExternal:
		return v.Interface(), nil
	case KindSequence:
		return e.exportSequence(v, path, depth)
	case KindComplex:
		return e.exportRecord(v, id, hasID, path, depth)
	}
	return nil, errs.New(errs.ErrCodeInternal, "unhandled kind %s at %s", kind, path)
}

// basicValue dereferences pointers to scalars so the tree holds values.
func basicValue(v reflect.Value) any {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}

func (e *exporter) exportSequence(v reflect.Value, path string, depth int) (any, error) {
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, unsupported(v.Type(), path)
	}
	out := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		item, err := e.export(v.Index(i), fmt.Sprintf("%s[%d]", path, i), depth+1)
		if err != nil {
			return nil, err
		}
		if item == nil && e.opts.skipNone {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (e *exporter) exportRecord(v reflect.Value, id identity, hasID bool, path string, depth int) (any, error) {
	target := v
	for target.Kind() == reflect.Pointer {
		target = target.Elem()
	}

	info := e.m.registry.Describe(target.Type())
	r := newRecordCap(8)
	r.Set(KeyClass, info.Name)
	r.Set(KeyNamespace, info.Namespace)
	r.Set(KeyModule, info.Module)
	r.Set(KeyUID, e.arena.allocate())

	// Registered before the fields so that back-references resolve to r.
	if hasID {
		e.arena.store(id, r)
	}

	switch target.Kind() {
	case reflect.Struct:
		for _, f := range cachedFields(target.Type()) {
			fv, ok := fieldByIndex(target, f.index)
			if !ok {
				continue
			}
			if err := e.exportField(r, f.name, fv, path, depth); err != nil {
				return nil, err
			}
		}
	case reflect.Map:
		keys := target.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return cmp.Compare(a.String(), b.String())
		})
		for _, k := range keys {
			name := k.String()
			if IsPrivate(name) {
				continue
			}
			if err := e.exportField(r, name, target.MapIndex(k), path, depth); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func (e *exporter) exportField(r *Record, name string, fv reflect.Value, path string, depth int) error {
	fieldPath := path + "." + name

	kind, err := e.m.classifier.classify(fv)
	if err != nil {
		return unsupported(unwrapInterface(fv).Type(), fieldPath)
	}
	if kind == KindNone {
		if !e.opts.skipNone {
			r.Set(name, nil)
		}
		return nil
	}
	if !e.opts.recursive && (kind == KindComplex || kind == KindSequence) {
		return nil
	}

	val, err := e.export(fv, fieldPath, depth+1)
	if err != nil {
		return err
	}
	if val == nil && e.opts.skipNone {
		return nil
	}
	r.Set(name, val)
	return nil
}
