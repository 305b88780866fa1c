package docstore

import (
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"

	errs "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/serial"
)

// maxDepth bounds the nesting Flatten and Assemble follow.
const maxDepth = 10000

// Graph is a flattened tree.
type Graph struct {
	ID      string    `bson:"graph"`
	Name    string    `bson:"_id"`
	Root    any       `bson:"root"`
	Created time.Time `bson:"created"`
	Count   int       `bson:"count"`
	Nodes   []Node    `bson:"-"`
}

// Node is one record of a graph.
type Node struct {
	ID    string `bson:"_id"`
	Graph string `bson:"graph"`
	Seq   int    `bson:"seq"`
	Stub  bool   `bson:"stub,omitempty"`
	Meta  []Attr `bson:"meta"`
	Attrs []Attr `bson:"attrs"`
}

// Attr is one named value of a node. Values are nil, bool, int64, float64,
// string, []any of values, or a Link.
type Attr struct {
	Name  string `bson:"name"`
	Value any    `bson:"value"`
}

// Link references another node of the same graph.
type Link struct {
	Ref string `bson:"ref"`
}

// Flatten converts tree into a graph with a fresh ID. Records sharing a
// pointer or a `_uid` map to the same node; a stub record only creates a
// node when no full record with its `_uid` exists.
func Flatten(tree any) (*Graph, error) {
	gid := uuid.New()
	f := &flattener{
		graph: &Graph{ID: gid.String(), Created: time.Now().UTC()},
		ns:    gid,
		byPtr: make(map[*serial.Record]string),
		byUID: make(map[int64]int),
	}
	root, err := f.value(tree, "$", 0)
	if err != nil {
		return nil, err
	}
	f.graph.Root = root
	f.graph.Count = len(f.graph.Nodes)
	return f.graph, nil
}

type flattener struct {
	graph *Graph
	ns    uuid.UUID
	byPtr map[*serial.Record]string
	byUID map[int64]int
}

func (f *flattener) value(v any, path string, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errs.New(errs.ErrCodeDepthExceeded, "flatten exceeded max depth %d at %s", maxDepth, path)
	}
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case *serial.Record:
		id, err := f.node(x, path, depth)
		if err != nil {
			return nil, err
		}
		return Link{Ref: id}, nil
	case map[string]any:
		return f.value(serial.RecordOf(x), path, depth)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			fv, err := f.value(item, path+"["+strconv.Itoa(i)+"]", depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = fv
		}
		return out, nil
	default:
		return number(v, path)
	}
}

// number widens the remaining integer and float kinds, such as the uint64
// CBOR decodes to, into the int64 and float64 BSON stores.
func number(v any, path string) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, errs.New(errs.ErrCodeInvalidInput, "unsigned value %d at %s overflows int64", u, path)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, errs.New(errs.ErrCodeInvalidInput, "unsupported value %T at %s", v, path)
}

func (f *flattener) node(r *serial.Record, path string, depth int) (string, error) {
	if id, ok := f.byPtr[r]; ok {
		return id, nil
	}

	stub := r.IsStub()
	idx := -1
	var id string
	if uid, ok := r.UID(); ok {
		id = uuid.NewSHA1(f.ns, []byte("uid:"+strconv.FormatInt(uid, 10))).String()
		if i, seen := f.byUID[uid]; seen {
			f.byPtr[r] = id
			if stub || !f.graph.Nodes[i].Stub {
				return id, nil
			}
			idx = i
		} else {
			f.byUID[uid] = len(f.graph.Nodes)
		}
	} else {
		id = uuid.NewSHA1(f.ns, []byte("seq:"+strconv.Itoa(len(f.graph.Nodes)))).String()
	}
	f.byPtr[r] = id

	if idx < 0 {
		idx = len(f.graph.Nodes)
		f.graph.Nodes = append(f.graph.Nodes, Node{ID: id, Graph: f.graph.ID, Seq: idx})
	}

	var meta, attrs []Attr
	for k, v := range r.All() {
		fv, err := f.value(v, path+"."+k, depth+1)
		if err != nil {
			return "", err
		}
		if serial.IsPrivate(k) {
			meta = append(meta, Attr{Name: k, Value: fv})
		} else {
			attrs = append(attrs, Attr{Name: k, Value: fv})
		}
	}

	n := &f.graph.Nodes[idx]
	n.Stub = stub
	n.Meta = meta
	n.Attrs = attrs
	return id, nil
}

// Assemble rebuilds the tree of g. Links become shared *serial.Record
// pointers, so cycles in the graph are cycles in the result.
func Assemble(g *Graph) (any, error) {
	records := make(map[string]*serial.Record, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if _, dup := records[n.ID]; dup {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "duplicate node %s", n.ID)
		}
		records[n.ID] = serial.NewRecord()
	}

	a := &assembler{records: records}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		r := records[n.ID]
		for _, list := range [][]Attr{n.Meta, n.Attrs} {
			for _, attr := range list {
				v, err := a.value(attr.Value, 0)
				if err != nil {
					return nil, errs.Wrap(errs.GetCode(err), err, "node %s field %s", n.ID, attr.Name)
				}
				r.Set(attr.Name, v)
			}
		}
	}
	return a.value(g.Root, 0)
}

type assembler struct {
	records map[string]*serial.Record
}

func (a *assembler) value(v any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errs.New(errs.ErrCodeDepthExceeded, "assemble exceeded max depth %d", maxDepth)
	}
	v, err := normalize(v)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case Link:
		r, ok := a.records[x.Ref]
		if !ok {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "dangling link to node %s", x.Ref)
		}
		return r, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			iv, err := a.value(item, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	}
	return v, nil
}
