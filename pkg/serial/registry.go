package serial

import (
	"fmt"
	"path"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	errs "github.com/matzehuels/objgraph/pkg/errors"
)

// BuiltinModule is the module of classes that have no package, such as
// unnamed maps and anonymous structs.
const BuiltinModule = "builtin"

// MapClass is the class name of map[string]any, registered in every
// [Registry] so that plain mappings survive a round trip.
const MapClass = "map"

const structClass = "struct"

// Class is a registered, constructible type.
type Class struct {
	name   string
	module string
	typ    reflect.Type
	base   reflect.Type
	ctor   func() (any, error)
}

// Name returns the class name written to `_class`.
func (c *Class) Name() string { return c.name }

// Module returns the module written to `_class_module`.
func (c *Class) Module() string { return c.module }

// Type returns the struct or map type of the class.
func (c *Class) Type() reflect.Type { return c.typ }

// Base returns the base type, or nil for a root class.
func (c *Class) Base() reflect.Type { return c.base }

func (c *Class) String() string { return c.module + "." + c.name }

// construct builds a fresh instance. Panics in user constructors are
// turned into INSTANTIATION errors.
func (c *Class) construct() (obj any, err error) {
	defer func() {
		if p := recover(); p != nil {
			obj, err = nil, errs.New(errs.ErrCodeInstantiation, "construct %s: panic: %v", c, p)
		}
	}()

	obj, err = c.ctor()
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInstantiation, err, "construct %s", c)
	}
	if obj == nil {
		return nil, errs.New(errs.ErrCodeInstantiation, "constructor for %s returned nil", c)
	}
	got := reflect.TypeOf(obj)
	if got != c.typ && got != reflect.PointerTo(c.typ) {
		return nil, errs.New(errs.ErrCodeInstantiation, "constructor for %s returned %s", c, got)
	}
	return obj, nil
}

func defaultConstructor(t reflect.Type) func() (any, error) {
	if t.Kind() == reflect.Map {
		return func() (any, error) { return reflect.MakeMap(t).Interface(), nil }
	}
	return func() (any, error) { return reflect.New(t).Interface(), nil }
}

// ClassOption configures [Registry.Register].
type ClassOption func(*classConfig)

type classConfig struct {
	name    string
	module  string
	base    reflect.Type
	baseSet bool
	ctor    func() (any, error)
	replace bool
}

// Name overrides the class name. The default is the Go type name.
func Name(name string) ClassOption {
	return func(c *classConfig) { c.name = name }
}

// Module overrides the module. The default is the last element of the
// type's package path.
func Module(module string) ClassOption {
	return func(c *classConfig) { c.module = module }
}

// Base sets the base class explicitly. sample may be a value, a pointer or
// a reflect.Type; nil declares a root class. Without this option the first
// embedded struct is the base.
func Base(sample any) ClassOption {
	return func(c *classConfig) {
		c.base = typeOfSample(sample)
		c.baseSet = true
	}
}

// Constructor sets the zero-argument constructor used on import. It must
// return a pointer to the struct (or the map) of the class.
func Constructor(fn func() (any, error)) ClassOption {
	return func(c *classConfig) { c.ctor = fn }
}

// Replace allows re-registering an existing (module, name) pair, which is
// how a host swaps in a reloaded definition.
func Replace() ClassOption {
	return func(c *classConfig) { c.replace = true }
}

type classKey struct {
	module string
	name   string
}

type indexKey struct {
	base  reflect.Type
	scope string
}

// Registry is an explicit set of classes import can construct.
//
// Registration invalidates every memoized [Index], and a name that misses
// a memoized index is looked up again in a freshly built one, so classes
// registered after the first import are always found.
// A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	classes map[classKey]*Class
	byType  map[reflect.Type]*Class
	order   []classKey
	memo    map[indexKey]*Index
}

// NewRegistry returns a registry containing only the builtin map class.
func NewRegistry() *Registry {
	r := &Registry{
		classes: make(map[classKey]*Class),
		byType:  make(map[reflect.Type]*Class),
		memo:    make(map[indexKey]*Index),
	}
	_, _ = r.Register(map[string]any(nil), Name(MapClass), Module(BuiltinModule), Base(nil))
	return r
}

// Register adds the type of sample as a class. sample may be a value, a
// pointer or a reflect.Type; pointers are dereferenced. Only structs and
// string-keyed maps are accepted.
func (r *Registry) Register(sample any, opts ...ClassOption) (*Class, error) {
	t := typeOfSample(sample)
	if t == nil {
		return nil, errs.New(errs.ErrCodeInvalidClass, "cannot register nil")
	}
	if !isComplexType(t) {
		return nil, errs.New(errs.ErrCodeInvalidClass, "cannot register %s: not a struct or string-keyed map", t)
	}

	cfg := classConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		cfg.name = t.Name()
	}
	if cfg.module == "" {
		cfg.module = defaultModule(t)
	}
	if !cfg.baseSet {
		cfg.base = firstEmbedded(t)
	}
	if cfg.ctor == nil {
		cfg.ctor = defaultConstructor(t)
	}
	if err := errs.ValidateClassName(cfg.name); err != nil {
		return nil, err
	}
	if err := errs.ValidateModuleName(cfg.module); err != nil {
		return nil, err
	}

	c := &Class{name: cfg.name, module: cfg.module, typ: t, base: cfg.base, ctor: cfg.ctor}
	key := classKey{module: c.module, name: c.name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasBaseCycle(c) {
		return nil, errs.New(errs.ErrCodeInvalidClass, "class %s would inherit from itself", c)
	}
	old, exists := r.classes[key]
	if exists && !cfg.replace {
		return nil, errs.New(errs.ErrCodeDuplicateClass, "class %s already registered", c)
	}
	if other, ok := r.byType[t]; ok && (classKey{module: other.module, name: other.name}) != key {
		if !cfg.replace {
			return nil, errs.New(errs.ErrCodeDuplicateClass, "type %s already registered as %s", t, other)
		}
		r.removeLocked(classKey{module: other.module, name: other.name})
	}
	if exists {
		if r.byType[old.typ] == old {
			delete(r.byType, old.typ)
		}
	} else {
		r.order = append(r.order, key)
	}

	r.classes[key] = c
	r.byType[t] = c
	clear(r.memo)
	return c, nil
}

// MustRegister is like Register but panics on error. It is meant for
// package-level setup.
func (r *Registry) MustRegister(sample any, opts ...ClassOption) *Class {
	c, err := r.Register(sample, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Unregister removes a class and reports whether it existed.
func (r *Registry) Unregister(module, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.classes[classKey{module: module, name: name}]; !ok {
		return false
	}
	r.removeLocked(classKey{module: module, name: name})
	clear(r.memo)
	return true
}

func (r *Registry) removeLocked(key classKey) {
	c := r.classes[key]
	delete(r.classes, key)
	if c != nil && r.byType[c.typ] == c {
		delete(r.byType, c.typ)
	}
	if i := slices.Index(r.order, key); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

func (r *Registry) hasBaseCycle(c *Class) bool {
	seen := map[reflect.Type]bool{c.typ: true}
	for t := c.base; t != nil; t = r.baseOfLocked(t) {
		if seen[t] {
			return true
		}
		seen[t] = true
	}
	return false
}

// Lookup returns the class registered under (module, name).
func (r *Registry) Lookup(module, name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[classKey{module: module, name: name}]
	return c, ok
}

// ClassOf returns the class registered for t (or the type t points to).
func (r *Registry) ClassOf(t reflect.Type) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byType[indirectType(t)]
	return c, ok
}

// Classes returns all classes in registration order.
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Class, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.classes[k])
	}
	return out
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ClassInfo is the tag triple written into an exported record.
type ClassInfo struct {
	Name      string
	Module    string
	Namespace string
}

// Describe returns the tags for values of type t. Unregistered types are
// described from their Go type, so export never requires registration.
func (r *Registry) Describe(t reflect.Type) ClassInfo {
	t = indirectType(t)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ClassInfo{
		Name:      r.nameOfLocked(t),
		Module:    r.moduleOfLocked(t),
		Namespace: r.namespaceOfLocked(t),
	}
}

// NamespaceOf returns the dot-joined ancestry of t, most derived first:
// "C.B.A" for C embedding B embedding A.
func (r *Registry) NamespaceOf(t reflect.Type) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namespaceOfLocked(indirectType(t))
}

func (r *Registry) namespaceOfLocked(t reflect.Type) string {
	var parts []string
	seen := map[reflect.Type]bool{}
	for cur := t; cur != nil && !seen[cur]; cur = r.baseOfLocked(cur) {
		seen[cur] = true
		parts = append(parts, r.nameOfLocked(cur))
	}
	return strings.Join(parts, ".")
}

func (r *Registry) baseOfLocked(t reflect.Type) reflect.Type {
	if c, ok := r.byType[t]; ok {
		return c.base
	}
	return firstEmbedded(t)
}

func (r *Registry) nameOfLocked(t reflect.Type) string {
	if c, ok := r.byType[t]; ok {
		return c.name
	}
	if t.Name() != "" {
		return t.Name()
	}
	if t.Kind() == reflect.Map {
		return MapClass
	}
	return structClass
}

func (r *Registry) moduleOfLocked(t reflect.Type) string {
	if c, ok := r.byType[t]; ok {
		return c.module
	}
	return defaultModule(t)
}

func defaultModule(t reflect.Type) string {
	if t.PkgPath() == "" {
		return BuiltinModule
	}
	return path.Base(t.PkgPath())
}

// Index maps class names to classes within one subtree of the class
// hierarchy, optionally restricted to one module.
type Index struct {
	classes   map[string]*Class
	ambiguous map[string][]*Class
	names     []string
}

// Lookup returns the class registered under name. It fails with
// CLASS_RESOLUTION when the name is unknown and AMBIGUOUS_CLASS when
// several modules in scope define it.
func (ix *Index) Lookup(name string) (*Class, error) {
	if cs, ok := ix.ambiguous[name]; ok {
		mods := make([]string, len(cs))
		for i, c := range cs {
			mods[i] = c.module
		}
		return nil, errs.New(errs.ErrCodeAmbiguousClass,
			"class %q is defined in several modules (%s); set %s", name, strings.Join(mods, ", "), KeyModule)
	}
	if c, ok := ix.classes[name]; ok {
		return c, nil
	}
	return nil, errs.New(errs.ErrCodeClassResolution, "class %q not found", name)
}

// Names returns the indexed names in hierarchy order.
func (ix *Index) Names() []string { return slices.Clone(ix.names) }

// Len returns the number of indexed names.
func (ix *Index) Len() int { return len(ix.names) }

// BuildIndex returns the name index of base and all its descendants,
// restricted to scope when scope is non-empty. A nil base covers every
// class. Results are memoized until the next registration.
func (r *Registry) BuildIndex(base any, scope string) *Index {
	return r.index(indexKey{base: typeOfSample(base), scope: scope}, false)
}

func (r *Registry) index(key indexKey, fresh bool) *Index {
	if !fresh {
		r.mu.RLock()
		ix := r.memo[key]
		r.mu.RUnlock()
		if ix != nil {
			return ix
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ix := r.buildIndexLocked(key)
	r.memo[key] = ix
	return ix
}

func (r *Registry) buildIndexLocked(key indexKey) *Index {
	ix := &Index{classes: map[string]*Class{}, ambiguous: map[string][]*Class{}}
	add := func(c *Class) {
		if key.scope != "" && c.module != key.scope {
			return
		}
		if cs, ok := ix.ambiguous[c.name]; ok {
			ix.ambiguous[c.name] = append(cs, c)
			return
		}
		if prev, ok := ix.classes[c.name]; ok {
			delete(ix.classes, c.name)
			ix.ambiguous[c.name] = []*Class{prev, c}
			return
		}
		ix.classes[c.name] = c
		ix.names = append(ix.names, c.name)
	}

	for _, c := range r.subtreeLocked(key.base) {
		add(c)
	}
	return ix
}

// subtreeLocked returns base (when registered) and its descendants in
// depth-first registration order. A nil base yields every class.
func (r *Registry) subtreeLocked(base reflect.Type) []*Class {
	if base == nil {
		out := make([]*Class, 0, len(r.order))
		for _, k := range r.order {
			out = append(out, r.classes[k])
		}
		return out
	}

	children := map[reflect.Type][]*Class{}
	for _, k := range r.order {
		c := r.classes[k]
		if c.base != nil {
			children[c.base] = append(children[c.base], c)
		}
	}

	var out []*Class
	seen := map[reflect.Type]bool{}
	var visit func(t reflect.Type)
	visit = func(t reflect.Type) {
		if seen[t] {
			return
		}
		seen[t] = true
		if c, ok := r.byType[t]; ok {
			out = append(out, c)
		}
		for _, child := range children[t] {
			visit(child.typ)
		}
	}
	visit(base)
	return out
}

// ResolveByName finds the class called name, restricted to module when
// module is non-empty. A miss in the memoized index is retried against a
// freshly built one before it is reported.
func (r *Registry) ResolveByName(name, module string) (*Class, error) {
	key := indexKey{scope: module}
	c, err := r.index(key, false).Lookup(name)
	if err == nil || !errs.Is(err, errs.ErrCodeClassResolution) {
		return c, err
	}
	c, err = r.index(key, true).Lookup(name)
	if err != nil && errs.Is(err, errs.ErrCodeClassResolution) {
		return nil, r.notFound(name, module)
	}
	return c, err
}

// ResolveByNamespace finds the class whose ancestry string equals ns,
// searching base and its descendants (every class when base is nil).
// Both "C.B.A" and the root-first "A.B.C" are accepted.
func (r *Registry) ResolveByNamespace(ns string, base any) (*Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := r.subtreeLocked(typeOfSample(base))
	match := func(want string) []*Class {
		var out []*Class
		for _, c := range candidates {
			if r.namespaceOfLocked(c.typ) == want {
				out = append(out, c)
			}
		}
		return out
	}

	found := match(ns)
	if len(found) == 0 {
		parts := strings.Split(ns, ".")
		slices.Reverse(parts)
		found = match(strings.Join(parts, "."))
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		last := ns
		if i := strings.LastIndexByte(ns, '.'); i >= 0 {
			last = ns[i+1:]
		}
		return nil, r.notFoundLocked(last, "")
	default:
		mods := make([]string, len(found))
		for i, c := range found {
			mods[i] = c.module
		}
		return nil, errs.New(errs.ErrCodeAmbiguousClass,
			"namespace %q matches classes in several modules (%s)", ns, strings.Join(mods, ", "))
	}
}

// Instantiate constructs a fresh instance of c. The class is looked up
// again first, so a definition swapped in with [Replace] after c was
// resolved is the one constructed.
func (r *Registry) Instantiate(c *Class) (any, error) {
	r.mu.RLock()
	live, ok := r.classes[classKey{module: c.module, name: c.name}]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.ErrCodeClassResolution, "class %s is no longer registered", c)
	}
	return live.construct()
}

func (r *Registry) notFound(name, module string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.notFoundLocked(name, module)
}

func (r *Registry) notFoundLocked(name, module string) error {
	where := ""
	if module != "" {
		where = fmt.Sprintf(" in module %q", module)
	}
	if s := r.suggestLocked(name); s != "" {
		return errs.New(errs.ErrCodeClassResolution, "class %q not found%s (did you mean %q?)", name, where, s)
	}
	return errs.New(errs.ErrCodeClassResolution, "class %q not found%s", name, where)
}

func (r *Registry) suggestLocked(name string) string {
	best, bestDist := "", len(name)/3+2
	for _, k := range r.order {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(k.name))
		if d < bestDist {
			best, bestDist = k.name, d
		}
	}
	return best
}

func typeOfSample(sample any) reflect.Type {
	switch s := sample.(type) {
	case nil:
		return nil
	case reflect.Type:
		return indirectType(s)
	default:
		return indirectType(reflect.TypeOf(sample))
	}
}
