package serial

import (
	"context"
	"slices"
	"testing"
)

func TestRecordOrder(t *testing.T) {
	r := NewRecord()
	r.Set("b", 1)
	r.Set("a", 2)
	r.Set("b", 3)

	if got := r.Keys(); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("Keys() = %v, want [b a]", got)
	}
	if v, _ := r.Get("b"); v != 3 {
		t.Errorf("b = %v, want 3", v)
	}

	if !r.Delete("b") || r.Delete("b") {
		t.Error("Delete should report presence once")
	}
	if r.Len() != 1 || r.Has("b") {
		t.Errorf("after Delete: keys = %v", r.Keys())
	}

	var zero Record
	zero.Set("x", 1)
	if !zero.Has("x") {
		t.Error("zero Record should be usable")
	}
}

func TestRecordTags(t *testing.T) {
	r := tagged("Joint", "rig", 0, "Name", "n")
	r.Set(KeyUID, 7.0)

	if !r.IsTagged() || r.IsStub() {
		t.Errorf("IsTagged = %v, IsStub = %v", r.IsTagged(), r.IsStub())
	}
	if uid, ok := r.UID(); !ok || uid != 7 {
		t.Errorf("UID() = %d, %v", uid, ok)
	}

	s := r.Stub()
	if !s.IsStub() || s.Class() != "Joint" || s.Module() != "rig" {
		t.Errorf("Stub() = %v", s.Keys())
	}
	if s.Has("Name") {
		t.Error("Stub should not carry fields")
	}

	r.Set(KeyUID, 7.5)
	if _, ok := r.UID(); ok {
		t.Error("fractional _uid should not parse")
	}

	if NewRecord().IsStub() {
		t.Error("untagged record is not a stub")
	}
}

func TestRecordOfSortsKeys(t *testing.T) {
	r := RecordOf(map[string]any{"z": 1, "a": 2, "m": 3})
	if got := r.Keys(); !slices.Equal(got, []string{"a", "m", "z"}) {
		t.Errorf("Keys() = %v", got)
	}
	if m := r.Map(); len(m) != 3 || m["z"] != 1 {
		t.Errorf("Map() = %v", m)
	}
	c := r.Clone()
	c.Set("new", true)
	if r.Has("new") {
		t.Error("Clone should not share keys")
	}
}

func TestDetach(t *testing.T) {
	m := newTestMarshaller(t)
	tree, err := m.Export(context.Background(), newTree())
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}

	plain := Detach(tree)
	root := plain.(*Record)
	if root == tree {
		t.Fatal("Detach should copy")
	}

	seen := map[*Record]bool{}
	Walk(plain, func(v Visit) bool {
		if seen[v.Record] {
			t.Errorf("record at %s appears twice after Detach", v.Path)
		}
		seen[v.Record] = true
		return true
	})

	children, _ := root.Get("Children")
	for i, item := range children.([]any) {
		parent, _ := item.(*Record).Get("Parent")
		p := parent.(*Record)
		if !p.IsStub() {
			t.Errorf("child %d Parent should be a stub", i)
		}
		if uid, _ := p.UID(); uid != 1 {
			t.Errorf("child %d Parent stub uid = %d, want 1", i, uid)
		}
	}
}

func TestWalk(t *testing.T) {
	m := newTestMarshaller(t)
	tree, _ := m.Export(context.Background(), newTree())

	var paths []string
	repeats := 0
	Walk(tree, func(v Visit) bool {
		if v.Repeat {
			repeats++
			return true
		}
		paths = append(paths, v.Path)
		return true
	})

	want := []string{"$", "$.Children[0]", "$.Children[1]"}
	if !slices.Equal(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	if repeats != 2 {
		t.Errorf("repeats = %d, want 2 back-references", repeats)
	}

	// Returning false prunes the subtree.
	visited := 0
	Walk(tree, func(Visit) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("visited = %d, want 1", visited)
	}
}
