package serial

import (
	"github.com/charmbracelet/log"
)

// DefaultMaxDepth bounds recursion in export and import. It is far above
// any hand-built scene graph and well below the point where a deep Go
// stack becomes a problem.
const DefaultMaxDepth = 512

// Marshaller converts object graphs to primitive trees and back. It holds
// no per-call state, so one Marshaller may serve concurrent calls.
type Marshaller struct {
	registry   *Registry
	classifier *Classifier
	logger     *log.Logger
	maxDepth   int
}

// Option configures a [Marshaller].
type Option func(*Marshaller)

// WithClassifier replaces the default classifier.
func WithClassifier(c *Classifier) Option {
	return func(m *Marshaller) {
		if c != nil {
			m.classifier = c
		}
	}
}

// WithLogger sets the logger used to report import failures.
func WithLogger(l *log.Logger) Option {
	return func(m *Marshaller) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMaxDepth sets the recursion limit. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(m *Marshaller) {
		if n > 0 {
			m.maxDepth = n
		}
	}
}

// New returns a marshaller that resolves classes in reg. A nil reg gets a
// fresh [NewRegistry].
func New(reg *Registry, opts ...Option) *Marshaller {
	if reg == nil {
		reg = NewRegistry()
	}
	m := &Marshaller{
		registry:   reg,
		classifier: NewClassifier(),
		logger:     log.Default(),
		maxDepth:   DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the registry used on import.
func (m *Marshaller) Registry() *Registry { return m.registry }

// Classifier returns the classifier used on export.
func (m *Marshaller) Classifier() *Classifier { return m.classifier }

// ExportOption configures a single [Marshaller.Export] call.
type ExportOption func(*exportOptions)

type exportOptions struct {
	skipNone  bool
	recursive bool
}

func defaultExportOptions() exportOptions {
	return exportOptions{skipNone: true, recursive: true}
}

// SkipNone controls whether absent values are omitted (the default) or
// written as nil.
func SkipNone(skip bool) ExportOption {
	return func(o *exportOptions) { o.skipNone = skip }
}

// KeepNone is SkipNone(false).
func KeepNone() ExportOption { return SkipNone(false) }

// Recursive controls whether nested records and sequences are exported
// (the default). Without recursion only scalar and external fields of the
// root are kept.
func Recursive(recursive bool) ExportOption {
	return func(o *exportOptions) { o.recursive = recursive }
}

// Shallow is Recursive(false).
func Shallow() ExportOption { return Recursive(false) }
