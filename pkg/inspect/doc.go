// Package inspect describes primitive trees for people.
//
// [Summarize] counts the records of a tree by class and reports sharing,
// stubs and nesting depth. [ToDOT] draws the record graph in Graphviz DOT
// with one box per object and one arrow per reference, and [RenderSVG] or
// [RenderPNG] lay it out in-process:
//
//	dot := inspect.ToDOT(tree, inspect.Options{Detailed: true})
//	svg, err := inspect.RenderSVG(dot)
//
// Records are identified by `_uid` when present and by pointer otherwise,
// so a stub and the full record it refers to are drawn as one node.
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz], which runs Graphviz as
// WebAssembly and needs no system installation.
package inspect
