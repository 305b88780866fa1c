package serial

import (
	"iter"
	"slices"
	"strings"
)

// Reserved record keys.
const (
	KeyClass     = "_class"
	KeyNamespace = "_class_namespace"
	KeyModule    = "_class_module"
	KeyUID       = "_uid"
)

// PrivatePrefix marks keys and field names that are never exported and
// never assigned on import.
const PrivatePrefix = "_"

// IsPrivate reports whether name starts with [PrivatePrefix].
func IsPrivate(name string) bool {
	return strings.HasPrefix(name, PrivatePrefix)
}

// Record is the exported form of a complex value: a string-keyed mapping
// that remembers insertion order.
//
// A record produced by export carries the four reserved keys first, then
// one entry per exported field in declaration order. Records are shared by
// pointer: when the same source object is reached twice, both places hold
// the same *Record. Use [Detach] before handing a tree to code that cannot
// cope with cycles.
type Record struct {
	keys   []string
	fields map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]any)}
}

func newRecordCap(n int) *Record {
	return &Record{keys: make([]string, 0, n), fields: make(map[string]any, n)}
}

// RecordOf builds an untagged record from m with keys in sorted order.
func RecordOf(m map[string]any) *Record {
	r := newRecordCap(len(m))
	for _, k := range sortedKeys(m) {
		r.Set(k, m[k])
	}
	return r
}

// Set stores v under key. A new key is appended to the key order; an
// existing key keeps its position.
func (r *Record) Set(key string, v any) {
	if r.fields == nil {
		r.fields = make(map[string]any)
	}
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = v
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Delete removes key and reports whether it was present.
func (r *Record) Delete(key string) bool {
	if _, ok := r.fields[key]; !ok {
		return false
	}
	delete(r.fields, key)
	if i := slices.Index(r.keys, key); i >= 0 {
		r.keys = slices.Delete(r.keys, i, i+1)
	}
	return true
}

// Len returns the number of keys, reserved keys included.
func (r *Record) Len() int { return len(r.keys) }

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string { return slices.Clone(r.keys) }

// All iterates over every entry in insertion order.
func (r *Record) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range r.keys {
			if !yield(k, r.fields[k]) {
				return
			}
		}
	}
}

// Fields iterates over the non-private entries in insertion order.
func (r *Record) Fields() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range r.keys {
			if IsPrivate(k) {
				continue
			}
			if !yield(k, r.fields[k]) {
				return
			}
		}
	}
}

// Class returns the `_class` tag, or "" if the record is untagged.
func (r *Record) Class() string { return r.str(KeyClass) }

// Module returns the `_class_module` tag.
func (r *Record) Module() string { return r.str(KeyModule) }

// Namespace returns the `_class_namespace` tag.
func (r *Record) Namespace() string { return r.str(KeyNamespace) }

// UID returns the `_uid` tag. Codecs may have turned the integer into a
// float or another integer type; any integral number is accepted.
func (r *Record) UID() (int64, bool) {
	v, ok := r.fields[KeyUID]
	if !ok {
		return 0, false
	}
	return toInt64(v)
}

// IsTagged reports whether the record names a class.
func (r *Record) IsTagged() bool { return r.Class() != "" }

// IsStub reports whether the record is tagged but carries no fields.
func (r *Record) IsStub() bool {
	if !r.IsTagged() {
		return false
	}
	for _, k := range r.keys {
		if !IsPrivate(k) {
			return false
		}
	}
	return true
}

// Stub returns a new record holding only the reserved keys of r.
func (r *Record) Stub() *Record {
	s := newRecordCap(4)
	for _, k := range r.keys {
		if IsPrivate(k) {
			s.Set(k, r.fields[k])
		}
	}
	return s
}

// Clone returns a shallow copy of r.
func (r *Record) Clone() *Record {
	c := newRecordCap(len(r.keys))
	for _, k := range r.keys {
		c.Set(k, r.fields[k])
	}
	return c
}

// Map returns a shallow copy of r as a plain map. Key order is lost.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		m[k] = r.fields[k]
	}
	return m
}

func (r *Record) str(key string) string {
	s, _ := r.fields[key].(string)
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
