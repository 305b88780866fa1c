package serial

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"strings"
	"time"

	errs "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/observability"
)

// importEntry is an instance rebuilt from a `_uid`. populated is false
// while only a stub has been seen, which happens when a codec does not
// preserve key order and a back-reference is decoded before the full
// record.
type importEntry struct {
	value     reflect.Value
	populated bool
}

type importer struct {
	ctx       context.Context
	m         *Marshaller
	instances map[int64]*importEntry
	failures  []Failure
}

// Import rebuilds an object graph from a primitive tree produced by
// [Marshaller.Export] (possibly after a codec round trip).
//
// Tagged records become fresh instances of their registered class; records
// sharing a `_uid` become one instance, so cycles are restored. Untagged
// mappings become map[string]any. A record that cannot be rebuilt is
// logged and left nil while its siblings are still imported; in that case
// the result is returned together with a *[PartialError]. Only a fatal
// error (such as DEPTH_EXCEEDED) yields a nil result.
func (m *Marshaller) Import(ctx context.Context, tree any) (any, error) {
	hooks := observability.Serial()
	hooks.OnImportStart(ctx)
	start := time.Now()

	im := &importer{ctx: ctx, m: m, instances: make(map[int64]*importEntry)}
	out, err := im.importValue(tree, "$", 0)

	hooks.OnImportComplete(ctx, len(im.instances), len(im.failures), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if len(im.failures) > 0 {
		return out, &PartialError{Failures: im.failures}
	}
	return out, nil
}

// ImportAs is Import followed by a conversion of the root to T. A partial
// result is still converted and returned with its *PartialError.
func ImportAs[T any](ctx context.Context, m *Marshaller, tree any) (T, error) {
	var zero T
	out, err := m.Import(ctx, tree)
	if out == nil {
		return zero, err
	}
	if v, ok := out.(T); ok {
		return v, err
	}
	cv, cerr := convertValue(out, reflect.TypeOf((*T)(nil)).Elem())
	if cerr != nil {
		return zero, errs.Wrap(errs.ErrCodeFieldAssignment, cerr, "import root as %T", zero)
	}
	return cv.Interface().(T), err
}

func (im *importer) importValue(v any, path string, depth int) (any, error) {
	if depth > im.m.maxDepth {
		return nil, errs.New(errs.ErrCodeDepthExceeded, "import exceeded max depth %d at %s", im.m.maxDepth, path)
	}

	switch x := v.(type) {
	case nil:
		return nil, nil
	case *Record:
		if x.IsTagged() {
			return im.importRecord(x, path, depth)
		}
		return im.importMapping(x.All(), x.Len(), path, depth)
	case map[string]any:
		r := RecordOf(x)
		if r.IsTagged() {
			return im.importRecord(r, path, depth)
		}
		return im.importMapping(r.All(), r.Len(), path, depth)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			iv, err := im.importValue(item, fmt.Sprintf("%s[%d]", path, i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	}
	return v, nil
}

// importMapping rebuilds an untagged mapping as map[string]any.
func (im *importer) importMapping(entries iter.Seq2[string, any], n int, path string, depth int) (any, error) {
	out := make(map[string]any, n)
	for k, raw := range entries {
		val, err := im.importValue(raw, path+"."+k, depth+1)
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}

func (im *importer) importRecord(r *Record, path string, depth int) (any, error) {
	uid, hasUID := r.UID()
	if hasUID {
		if entry, ok := im.instances[uid]; ok {
			if !entry.populated && !r.IsStub() {
				entry.populated = true
				if err := im.populate(entry.value, r, path, depth); err != nil {
					return nil, err
				}
			}
			return entry.value.Interface(), nil
		}
	}

	cls, err := im.resolve(r)
	if err != nil {
		observability.Serial().OnResolveMiss(im.ctx, r.Class(), r.Module())
		im.fail(r, path, err)
		return nil, nil
	}
	obj, err := im.m.registry.Instantiate(cls)
	if err != nil {
		im.fail(r, path, err)
		return nil, nil
	}

	entry := &importEntry{value: reflect.ValueOf(obj), populated: !r.IsStub()}
	// Registered before the fields so that back-references resolve to obj.
	if hasUID {
		im.instances[uid] = entry
	}
	if err := im.populate(entry.value, r, path, depth); err != nil {
		return nil, err
	}
	return obj, nil
}

// resolve maps the tags of r to a class. With `_class_module` the lookup is
// by name within that module. Without it the namespace string is matched,
// which is how records written before module tags existed are read.
func (im *importer) resolve(r *Record) (*Class, error) {
	class := r.Class()
	name := class
	if i := strings.LastIndexByte(class, '.'); i >= 0 {
		name = class[i+1:]
	}
	if module := r.Module(); module != "" {
		return im.m.registry.ResolveByName(name, module)
	}
	ns := r.Namespace()
	if ns == "" {
		ns = class
	}
	return im.m.registry.ResolveByNamespace(ns, nil)
}

func (im *importer) populate(inst reflect.Value, r *Record, path string, depth int) error {
	for key, raw := range r.Fields() {
		fieldPath := path + "." + key
		val, err := im.importValue(raw, fieldPath, depth+1)
		if err != nil {
			return err
		}
		if val == nil && inst.Kind() != reflect.Map {
			continue
		}
		if err := assignField(inst, key, val); err != nil {
			im.fail(r, fieldPath, err)
		}
	}
	return nil
}

func (im *importer) fail(r *Record, path string, err error) {
	f := Failure{Path: path, Class: r.Class(), Module: r.Module(), Err: err}
	im.failures = append(im.failures, f)
	im.m.logger.Error("cannot rebuild value",
		"path", f.Path, "class", f.Class, "module", f.Module, "code", errs.GetCode(err), "err", err)
}
