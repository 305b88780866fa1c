package serial

import (
	"fmt"
	"strings"
)

// Failure describes one part of a tree that import could not rebuild. The
// value at Path was left unset and import carried on with its siblings.
type Failure struct {
	Path   string // location in the tree, "$" is the root
	Class  string // `_class` of the record, if any
	Module string // `_class_module` of the record, if any
	Err    error
}

func (f Failure) Error() string {
	if f.Class == "" {
		return fmt.Sprintf("%s: %v", f.Path, f.Err)
	}
	return fmt.Sprintf("%s (%s): %v", f.Path, f.Class, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// PartialError is returned by [Marshaller.Import] together with a usable
// result when some records could not be rebuilt.
type PartialError struct {
	Failures []Failure
}

func (e *PartialError) Error() string {
	if len(e.Failures) == 1 {
		return "import incomplete: " + e.Failures[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "import incomplete: %d failures", len(e.Failures))
	for i, f := range e.Failures {
		if i == 3 {
			fmt.Fprintf(&b, "; and %d more", len(e.Failures)-i)
			break
		}
		b.WriteString("; ")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes every failure cause to errors.Is and errors.As.
func (e *PartialError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Err
	}
	return out
}
