package serial

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

// Node, Transform and Joint form a three-level hierarchy through
// embedding: Joint -> Transform -> Node.
type Node struct {
	Name     string
	Parent   *Node
	Children []*Node
}

type Transform struct {
	Node
	Translate [3]float64
}

type Joint struct {
	Transform
	Radius float64
	Locked bool
}

// Handle stands in for a host object that must pass through unchanged.
type Handle struct {
	ID int
}

type Secretive struct {
	Visible  string
	hidden   string
	Skipped  string `serial:"-"`
	Renamed  string `serial:"label"`
	Internal string `serial:"_internal"`
}

type Inner struct {
	Name  string
	Depth int
}

type Outer struct {
	Inner
	Name string
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, sample := range []any{Node{}, Transform{}, Joint{}, Secretive{}} {
		if _, err := reg.Register(sample); err != nil {
			t.Fatalf("Register(%T) error: %v", sample, err)
		}
	}
	return reg
}

func newTestMarshaller(t *testing.T, opts ...Option) *Marshaller {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(newTestRegistry(t), opts...)
}

// newTree builds root -> (left, right) with back-references to the root.
func newTree() *Node {
	root := &Node{Name: "root"}
	for _, name := range []string{"left", "right"} {
		root.Children = append(root.Children, &Node{Name: name, Parent: root})
	}
	return root
}

func newJoint() *Joint {
	j := &Joint{Radius: 2, Locked: true}
	j.Name = "elbow"
	j.Translate = [3]float64{0, 1.5, 0}
	return j
}
