package serial

import (
	"context"
	"iter"
	"slices"
	"strings"
	"testing"

	errs "github.com/matzehuels/objgraph/pkg/errors"
)

func exportRecord(t *testing.T, m *Marshaller, v any, opts ...ExportOption) *Record {
	t.Helper()
	out, err := m.Export(context.Background(), v, opts...)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	r, ok := out.(*Record)
	if !ok {
		t.Fatalf("Export returned %T, want *Record", out)
	}
	return r
}

func TestExportTags(t *testing.T) {
	m := newTestMarshaller(t)
	r := exportRecord(t, m, newJoint())

	want := []string{KeyClass, KeyNamespace, KeyModule, KeyUID, "Name", "Translate", "Radius", "Locked"}
	if got := r.Keys(); !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if r.Class() != "Joint" {
		t.Errorf("_class = %q, want Joint", r.Class())
	}
	if r.Namespace() != "Joint.Transform.Node" {
		t.Errorf("_class_namespace = %q, want Joint.Transform.Node", r.Namespace())
	}
	if r.Module() != "serial" {
		t.Errorf("_class_module = %q, want serial", r.Module())
	}
	if uid, ok := r.UID(); !ok || uid != 1 {
		t.Errorf("_uid = %d, %v; want 1", uid, ok)
	}

	translate, _ := r.Get("Translate")
	if got, ok := translate.([]any); !ok || len(got) != 3 || got[1] != 1.5 {
		t.Errorf("Translate = %#v", translate)
	}
	if v, _ := r.Get("Locked"); v != true {
		t.Errorf("Locked = %v", v)
	}
}

func TestExportUnregisteredTypes(t *testing.T) {
	m := New(nil, WithLogger(quietLogger()))
	r := exportRecord(t, m, &Crate{Label: "c"})
	if r.Class() != "Crate" || r.Module() != "serial" {
		t.Errorf("tags = %s/%s, want Crate/serial", r.Class(), r.Module())
	}

	r = exportRecord(t, m, map[string]any{"b": 2, "a": 1})
	if r.Class() != MapClass || r.Module() != BuiltinModule {
		t.Errorf("map tags = %s/%s", r.Class(), r.Module())
	}
	fields := slices.Collect(keysOf(r))
	if !slices.Equal(fields, []string{"a", "b"}) {
		t.Errorf("map fields = %v, want sorted [a b]", fields)
	}
}

func TestExportCycle(t *testing.T) {
	m := newTestMarshaller(t)
	root := exportRecord(t, m, newTree())

	children, _ := root.Get("Children")
	items, ok := children.([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("Children = %#v", children)
	}

	uids := map[int64]bool{}
	rootUID, _ := root.UID()
	uids[rootUID] = true
	for i, item := range items {
		child := item.(*Record)
		parent, _ := child.Get("Parent")
		if parent != root {
			t.Errorf("child %d Parent is not the root record", i)
		}
		uid, _ := child.UID()
		if uids[uid] {
			t.Errorf("child %d reuses uid %d", i, uid)
		}
		uids[uid] = true
	}
}

func TestExportSharedMap(t *testing.T) {
	shared := map[string]any{"k": 1}
	m := newTestMarshaller(t)
	out, err := m.Export(context.Background(), []any{shared, shared})
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	items := out.([]any)
	if items[0] != items[1] {
		t.Error("the same map exported twice should yield the same record")
	}
}

func TestExportPrivateFields(t *testing.T) {
	m := newTestMarshaller(t)
	r := exportRecord(t, m, &Secretive{
		Visible:  "v",
		hidden:   "h",
		Skipped:  "s",
		Renamed:  "r",
		Internal: "i",
	})

	if got := slices.Collect(keysOf(r)); !slices.Equal(got, []string{"Visible", "label"}) {
		t.Errorf("exported fields = %v, want [Visible label]", got)
	}
}

func TestExportEmbeddedShadowing(t *testing.T) {
	m := newTestMarshaller(t)
	o := &Outer{Name: "outer"}
	o.Inner.Name = "inner"
	o.Depth = 3

	r := exportRecord(t, m, o)
	if got := slices.Collect(keysOf(r)); !slices.Equal(got, []string{"Depth", "Name"}) {
		t.Errorf("fields = %v, want [Depth Name]", got)
	}
	if v, _ := r.Get("Name"); v != "outer" {
		t.Errorf("Name = %v, want the shallower field", v)
	}
}

func TestExportNone(t *testing.T) {
	m := newTestMarshaller(t)
	n := &Node{Name: "solo"}

	r := exportRecord(t, m, n)
	if r.Has("Parent") || r.Has("Children") {
		t.Errorf("nil fields should be skipped by default: %v", r.Keys())
	}

	r = exportRecord(t, m, n, KeepNone())
	v, ok := r.Get("Parent")
	if !ok || v != nil {
		t.Errorf("KeepNone Parent = %v, %v; want nil, true", v, ok)
	}

	out, err := m.Export(context.Background(), []*Node{nil, n, nil})
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if items := out.([]any); len(items) != 1 {
		t.Errorf("nil items should be dropped, got %d items", len(items))
	}

	out, err = m.Export(context.Background(), nil)
	if err != nil || out != nil {
		t.Errorf("Export(nil) = %v, %v; want nil, nil", out, err)
	}
}

func TestExportPointerToNilPointer(t *testing.T) {
	m := newTestMarshaller(t)

	var n *Node
	out, err := m.Export(context.Background(), &n)
	if err != nil || out != nil {
		t.Errorf("Export(&nil) = %v, %v; want nil, nil", out, err)
	}

	pp := &n
	r := exportRecord(t, m, map[string]any{"ref": &pp, "name": "x"})
	if r.Has("ref") {
		t.Errorf("nested nil pointer should be skipped: %v", r.Keys())
	}
}

type empty struct{}

type emptyPair struct {
	A *empty
	B *empty
}

func TestExportZeroSizePointers(t *testing.T) {
	reg := newTestRegistry(t)
	for _, sample := range []any{empty{}, emptyPair{}} {
		if _, err := reg.Register(sample); err != nil {
			t.Fatalf("Register(%T) error: %v", sample, err)
		}
	}
	m := New(reg, WithLogger(quietLogger()))

	r := exportRecord(t, m, &emptyPair{A: &empty{}, B: &empty{}})
	a, _ := r.Get("A")
	b, _ := r.Get("B")
	ra, okA := a.(*Record)
	rb, okB := b.(*Record)
	if !okA || !okB {
		t.Fatalf("A, B = %T, %T; want records", a, b)
	}
	if ra == rb || ra.IsStub() || rb.IsStub() {
		t.Error("distinct zero-size values should export as separate full records")
	}
	ua, _ := ra.UID()
	ub, _ := rb.UID()
	if ua == ub {
		t.Errorf("both records carry _uid %d", ua)
	}
}

func TestExportShallow(t *testing.T) {
	m := newTestMarshaller(t)
	r := exportRecord(t, m, newTree(), Shallow())

	if r.Has("Children") {
		t.Error("Shallow export should drop sequence fields")
	}
	if v, _ := r.Get("Name"); v != "root" {
		t.Errorf("Name = %v", v)
	}
}

func TestExportExternal(t *testing.T) {
	c := NewClassifier()
	c.RegisterExternalType(TypeOf[Handle]())
	m := newTestMarshaller(t, WithClassifier(c))

	h := &Handle{ID: 9}
	out, err := m.Export(context.Background(), map[string]any{"h": h})
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	got, _ := out.(*Record).Get("h")
	if got != h {
		t.Errorf("external value = %#v, want the original pointer", got)
	}
}

func TestExportUnsupported(t *testing.T) {
	type withChan struct {
		Name string
		Ch   chan int
	}
	m := newTestMarshaller(t)

	out, err := m.Export(context.Background(), &withChan{Name: "x", Ch: make(chan int)})
	if out != nil {
		t.Errorf("failed export should return nil, got %#v", out)
	}
	if !errs.Is(err, errs.ErrCodeUnsupportedType) {
		t.Fatalf("error = %v, want UNSUPPORTED_TYPE", err)
	}
	if !strings.Contains(err.Error(), "$.Ch") {
		t.Errorf("error should name the path: %v", err)
	}
}

func TestExportSequenceKindMismatch(t *testing.T) {
	c := NewClassifier()
	c.sequence[TypeOf[Handle]()] = struct{}{}
	m := newTestMarshaller(t, WithClassifier(c))

	_, err := m.Export(context.Background(), []any{Handle{ID: 1}})
	if !errs.Is(err, errs.ErrCodeUnsupportedType) {
		t.Fatalf("error = %v, want UNSUPPORTED_TYPE", err)
	}
}

func TestExportDepthExceeded(t *testing.T) {
	m := newTestMarshaller(t, WithMaxDepth(16))

	loop := make([]any, 1)
	loop[0] = loop
	_, err := m.Export(context.Background(), loop)
	if !errs.Is(err, errs.ErrCodeDepthExceeded) {
		t.Fatalf("error = %v, want DEPTH_EXCEEDED", err)
	}
}

func keysOf(r *Record) iter.Seq[string] {
	return func(yield func(string) bool) {
		for k := range r.Fields() {
			if !yield(k) {
				return
			}
		}
	}
}
