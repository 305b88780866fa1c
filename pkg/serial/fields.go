package serial

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

// TagName is the struct tag consulted for field names. `serial:"name"`
// renames a field and `serial:"-"` excludes it.
const TagName = "serial"

// field is one exported struct field, possibly promoted from an embedded
// struct.
type field struct {
	name  string
	index []int
	typ   reflect.Type
}

var fieldCache sync.Map // map[reflect.Type][]field

// cachedFields returns the exported fields of struct type t in declaration
// order, with embedded structs flattened in place.
func cachedFields(t reflect.Type) []field {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]field)
	}
	f, _ := fieldCache.LoadOrStore(t, typeFields(t))
	return f.([]field)
}

// lookupField finds the field serialized under name.
func lookupField(t reflect.Type, name string) (field, bool) {
	for _, f := range cachedFields(t) {
		if f.name == name {
			return f, true
		}
	}
	return field{}, false
}

// typeFields walks t breadth first so that a field declared at a shallower
// depth hides promoted fields with the same name. At equal depth the first
// declared wins.
func typeFields(t reflect.Type) []field {
	type item struct {
		typ   reflect.Type
		index []int
	}

	var (
		fields  []field
		claimed = map[string]bool{}
		visited = map[reflect.Type]bool{}
		next    = []item{{typ: t}}
	)
	for len(next) > 0 {
		current := next
		next = nil
		level := map[string]bool{}

		for _, it := range current {
			if visited[it.typ] {
				continue
			}
			visited[it.typ] = true

			for i := 0; i < it.typ.NumField(); i++ {
				sf := it.typ.Field(i)
				tag := sf.Tag.Get(TagName)
				if tag == "-" {
					continue
				}
				index := append(slices.Clone(it.index), i)

				if sf.Anonymous && tag == "" {
					ft := sf.Type
					if ft.Kind() == reflect.Pointer {
						ft = ft.Elem()
					}
					if ft.Kind() == reflect.Struct {
						next = append(next, item{typ: ft, index: index})
						continue
					}
				}
				if !sf.IsExported() {
					continue
				}

				name := sf.Name
				if n, _, _ := strings.Cut(tag, ","); n != "" {
					name = n
				}
				if IsPrivate(name) || claimed[name] || level[name] {
					continue
				}
				level[name] = true
				fields = append(fields, field{name: name, index: index, typ: sf.Type})
			}
		}
		for n := range level {
			claimed[n] = true
		}
	}

	slices.SortFunc(fields, func(a, b field) int {
		return slices.Compare(a.index, b.index)
	})
	return fields
}

// firstEmbedded returns the first embedded struct type of t, which is the
// base class implied by Go embedding.
func firstEmbedded(t reflect.Type) reflect.Type {
	if t.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous {
			continue
		}
		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			return ft
		}
	}
	return nil
}

// fieldByIndex is reflect.Value.FieldByIndex without the panic on nil
// embedded pointers.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// fieldByIndexAlloc is like fieldByIndex but allocates nil embedded
// pointers on the way down.
func fieldByIndexAlloc(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
