package inspect

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/objgraph/pkg/serial"
)

// Options configures DOT generation.
type Options struct {
	// Detailed adds the scalar fields of each record to its label.
	// When false, only the class and `_uid` are shown.
	Detailed bool
}

// maxValueLen truncates long scalar values in detailed labels.
const maxValueLen = 32

type dotNode struct {
	id     string
	label  string
	fields []string
	filled bool
}

type dotEdge struct {
	from, to, label string
}

type dotBuilder struct {
	opts  Options
	nodes []*dotNode
	byID  map[string]*dotNode
	ptrs  map[*serial.Record]string
	edges []dotEdge
}

// ToDOT converts the records of tree to Graphviz DOT. Each distinct record
// is a box; every field holding a record, directly or inside a list, is an
// arrow labelled with the field path. Records known only from stubs are
// drawn dashed.
func ToDOT(tree any, opts Options) string {
	d := &dotBuilder{
		opts: opts,
		byID: make(map[string]*dotNode),
		ptrs: make(map[*serial.Record]string),
	}
	d.visit(tree, "", "")

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range d.nodes {
		label := n.label
		if d.opts.Detailed && len(n.fields) > 0 {
			label += "\n" + strings.Join(n.fields, "\n")
		}
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if !n.filled {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.id, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range d.edges {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.from, e.to, e.label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func (d *dotBuilder) visit(v any, from, path string) {
	switch x := v.(type) {
	case *serial.Record:
		n, descend := d.node(x)
		if from != "" {
			d.edges = append(d.edges, dotEdge{from: from, to: n.id, label: path})
		}
		if !descend {
			return
		}
		for k, fv := range x.Fields() {
			if s, ok := scalar(fv); ok {
				n.fields = append(n.fields, k+": "+s)
				continue
			}
			d.visit(fv, n.id, k)
		}
	case []any:
		for i, item := range x {
			d.visit(item, from, path+"["+strconv.Itoa(i)+"]")
		}
	case map[string]any:
		d.visit(serial.RecordOf(x), from, path)
	}
}

// node returns the node of r and whether r's fields still need visiting.
func (d *dotBuilder) node(r *serial.Record) (*dotNode, bool) {
	if id, ok := d.ptrs[r]; ok {
		return d.byID[id], false
	}

	var id string
	uid, hasUID := r.UID()
	if hasUID {
		id = "r" + strconv.FormatInt(uid, 10)
	} else {
		id = "n" + strconv.Itoa(len(d.nodes))
	}
	d.ptrs[r] = id

	n, ok := d.byID[id]
	if !ok {
		n = &dotNode{id: id, label: recordLabel(r, uid, hasUID)}
		d.nodes = append(d.nodes, n)
		d.byID[id] = n
	}
	if n.filled || r.IsStub() {
		return n, false
	}
	n.filled = true
	return n, true
}

func recordLabel(r *serial.Record, uid int64, hasUID bool) string {
	label := r.Class()
	if label == "" {
		label = "{}"
	} else if m := r.Module(); m != "" {
		label = m + "." + label
	}
	if hasUID {
		label += " #" + strconv.FormatInt(uid, 10)
	}
	return label
}

func scalar(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		s = "null"
	case string:
		s = strconv.Quote(x)
	case bool, int64, float64, int:
		s = fmt.Sprint(x)
	case []any:
		for _, item := range x {
			if _, ok := scalar(item); !ok {
				return "", false
			}
		}
		s = fmt.Sprintf("[%d items]", len(x))
	default:
		return "", false
	}
	if len(s) > maxValueLen {
		s = s[:maxValueLen-3] + "..."
	}
	return s, true
}

// RenderSVG lays out a DOT graph with Graphviz and returns SVG.
func RenderSVG(dot string) ([]byte, error) {
	svg, err := render(dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(svg), nil
}

// RenderPNG lays out a DOT graph with Graphviz and returns PNG.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG)
}

func render(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz <svg> tag with one whose viewBox
// starts at the origin and whose size matches it.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
