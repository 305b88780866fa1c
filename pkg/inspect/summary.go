package inspect

import (
	"cmp"
	"slices"

	"github.com/matzehuels/objgraph/pkg/serial"
)

// ClassCount is the number of distinct records of one class.
type ClassCount struct {
	Class  string
	Module string
	Count  int
}

// Summary describes the records of a tree.
type Summary struct {
	// Records counts distinct records.
	Records int
	// Repeats counts references to records reached before, by pointer or
	// by `_uid`.
	Repeats int
	// Stubs counts records that carry only reserved keys.
	Stubs int
	// Untagged counts distinct records without a `_class`.
	Untagged int
	// MaxDepth is the deepest nesting level of any record, the root being 0.
	MaxDepth int
	// Classes lists distinct records per class, most frequent first.
	Classes []ClassCount
}

// Summarize walks tree and counts its records.
func Summarize(tree any) *Summary {
	s := &Summary{}
	type key struct{ class, module string }
	counts := make(map[key]int)

	seenUID := make(map[int64]bool)

	serial.Walk(tree, func(v serial.Visit) bool {
		r := v.Record
		s.MaxDepth = max(s.MaxDepth, v.Depth)
		if r.IsStub() {
			s.Stubs++
		}
		if v.Repeat {
			s.Repeats++
			return false
		}
		// A full record may follow a stub with the same `_uid`.
		if uid, ok := r.UID(); ok {
			if seenUID[uid] {
				s.Repeats++
				return true
			}
			seenUID[uid] = true
		}

		s.Records++
		if !r.IsTagged() {
			s.Untagged++
			return true
		}
		counts[key{r.Class(), r.Module()}]++
		return true
	})

	for k, n := range counts {
		s.Classes = append(s.Classes, ClassCount{Class: k.class, Module: k.module, Count: n})
	}
	slices.SortFunc(s.Classes, func(a, b ClassCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Class, b.Class); c != 0 {
			return c
		}
		return cmp.Compare(a.Module, b.Module)
	})
	return s
}
