package serial

import (
	"reflect"
	"sync"

	errs "github.com/matzehuels/objgraph/pkg/errors"
)

// Kind is the export category of a value.
type Kind int

const (
	// KindNone is the absence of a value: untyped nil, or a nil pointer,
	// interface, map or slice.
	KindNone Kind = iota
	// KindBasic is a scalar passed through unchanged (bool, integers, floats,
	// strings, and any registered basic type).
	KindBasic
	// KindSequence is an ordered collection exported item by item.
	KindSequence
	// KindExternal is a host-registered value exported as itself.
	KindExternal
	// KindComplex is a struct or string-keyed map exported as a [Record].
	KindComplex
)

var kindNames = map[Kind]string{
	KindNone:     "none",
	KindBasic:    "basic",
	KindSequence: "sequence",
	KindExternal: "external",
	KindComplex:  "complex",
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// TypeOf returns the reflect.Type of T. It works for interface types too,
// which makes it the usual way to build arguments for the Register*Type hooks:
//
//	c.RegisterExternalType(serial.TypeOf[scene.Handle]())
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Classifier decides which [Kind] a value belongs to.
//
// The checks run in a fixed order: none, basic, sequence, external, complex.
// The order matters because the categories overlap: a registered external
// type is usually a struct and would otherwise be decomposed as complex.
//
// The three type sets are open. Hosts extend them with [Classifier.RegisterBasicType],
// [Classifier.RegisterSequenceType] and [Classifier.RegisterExternalType].
// A Classifier is safe for concurrent use.
type Classifier struct {
	mu       sync.RWMutex
	basic    map[reflect.Type]struct{}
	sequence map[reflect.Type]struct{}
	external []reflect.Type
}

// NewClassifier returns a classifier that knows the built-in kinds only.
func NewClassifier() *Classifier {
	return &Classifier{
		basic:    make(map[reflect.Type]struct{}),
		sequence: make(map[reflect.Type]struct{}),
	}
}

// RegisterBasicType makes values of t classify as [KindBasic].
func (c *Classifier) RegisterBasicType(t reflect.Type) {
	if t == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.basic[t] = struct{}{}
}

// RegisterSequenceType makes values of t classify as [KindSequence].
// t, or the type it points to, must have slice or array kind so it can be
// walked item by item; other types are rejected with INVALID_INPUT.
func (c *Classifier) RegisterSequenceType(t reflect.Type) error {
	if t == nil {
		return nil
	}
	if k := indirectType(t).Kind(); k != reflect.Slice && k != reflect.Array {
		return errs.New(errs.ErrCodeInvalidInput, "sequence type %s has kind %s, want slice or array", t, k)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sequence[t] = struct{}{}
	return nil
}

// RegisterExternalType makes values of t classify as [KindExternal].
// If t is an interface type, every value implementing it matches.
func (c *Classifier) RegisterExternalType(t reflect.Type) {
	if t == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, x := range c.external {
		if x == t {
			return
		}
	}
	c.external = append(c.external, t)
}

// Classify returns the kind of v, or an UNSUPPORTED_TYPE error when v
// matches no category (channels, functions, complex numbers, maps with
// non-string keys, ...).
func (c *Classifier) Classify(v any) (Kind, error) {
	return c.classify(reflect.ValueOf(v))
}

func (c *Classifier) classify(v reflect.Value) (Kind, error) {
	v = unwrapInterface(v)
	if isNone(v) {
		return KindNone, nil
	}
	// A non-nil pointer to a nil pointer is None as well.
	for w := v; w.Kind() == reflect.Pointer; {
		w = w.Elem()
		if isNone(w) {
			return KindNone, nil
		}
	}

	t := v.Type()
	if k, ok := c.category(t); ok {
		return k, nil
	}
	if t.Kind() == reflect.Pointer {
		// Pointers to scalars or slices take the category of what they point to.
		return c.classify(v.Elem())
	}
	return KindNone, unsupported(t, "")
}

func (c *Classifier) category(t reflect.Type) (Kind, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.isBasic(t):
		return KindBasic, true
	case c.isSequence(t):
		return KindSequence, true
	case c.isExternal(t):
		return KindExternal, true
	case isComplexType(t):
		return KindComplex, true
	}
	return KindNone, false
}

func (c *Classifier) isBasic(t reflect.Type) bool {
	if matchType(c.basic, t) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (c *Classifier) isSequence(t reflect.Type) bool {
	if matchType(c.sequence, t) {
		return true
	}
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

func (c *Classifier) isExternal(t reflect.Type) bool {
	for _, x := range c.external {
		if t == x {
			return true
		}
		if x.Kind() == reflect.Interface && t.Implements(x) {
			return true
		}
		if t.Kind() == reflect.Pointer && t.Elem() == x {
			return true
		}
	}
	return false
}

// matchType reports whether t, or the type t points to, is in set.
func matchType(set map[reflect.Type]struct{}, t reflect.Type) bool {
	if _, ok := set[t]; ok {
		return true
	}
	if t.Kind() == reflect.Pointer {
		_, ok := set[t.Elem()]
		return ok
	}
	return false
}

// isComplexType reports whether t exposes a field namespace: a struct, a
// pointer to one, or a map keyed by strings.
func isComplexType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		return true
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	}
	return false
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isNone(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// UnsupportedTypeError reports a value that matches no classification.
type UnsupportedTypeError struct {
	Type reflect.Type // runtime type of the offending value
	Path string       // location in the exported graph, empty when unknown
}

func (e *UnsupportedTypeError) Error() string {
	if e.Path == "" {
		return "unsupported type " + e.Type.String()
	}
	return "unsupported type " + e.Type.String() + " at " + e.Path
}

func unsupported(t reflect.Type, path string) error {
	cause := &UnsupportedTypeError{Type: t, Path: path}
	return errs.Wrap(errs.ErrCodeUnsupportedType, cause, "cannot classify %s", t)
}
