package codec

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/objgraph/pkg/serial"
)

// YAML writes block-style YAML with record keys in insertion order.
var YAML Format = yamlFormat{}

type yamlFormat struct{}

func (yamlFormat) Name() string         { return "yaml" }
func (yamlFormat) Extensions() []string { return []string{".yaml", ".yml"} }

func (f yamlFormat) Encode(w io.Writer, tree any) error {
	node, err := toYAMLNode(serial.Detach(tree))
	if err != nil {
		return encodeError(f, err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return encodeError(f, err)
	}
	if err := enc.Close(); err != nil {
		return encodeError(f, err)
	}
	return nil
}

func (f yamlFormat) Decode(r io.Reader) (any, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, decodeError(f, errors.New("empty document"))
		}
		return nil, decodeError(f, err)
	}
	v, err := fromYAMLNode(&doc, 0)
	if err != nil {
		return nil, decodeError(f, err)
	}
	return v, nil
}

func toYAMLNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case *serial.Record:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for k, fv := range x.All() {
			vn, err := toYAMLNode(fv)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, yamlKey(k), vn)
		}
		return n, nil
	case map[string]any:
		return toYAMLNode(serial.RecordOf(x))
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range x {
			vn, err := toYAMLNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, vn)
		}
		return n, nil
	}

	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func yamlKey(k string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
}

// maxYAMLDepth stops alias loops such as `&a [*a]`.
const maxYAMLDepth = 10000

func fromYAMLNode(n *yaml.Node, depth int) (any, error) {
	if depth > maxYAMLDepth {
		return nil, errors.New("document nested too deeply")
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAMLNode(n.Content[0], depth+1)
	case yaml.MappingNode:
		r := serial.NewRecord()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromYAMLNode(n.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			r.Set(n.Content[i].Value, v)
		}
		return r, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := fromYAMLNode(item, depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias, depth+1)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, errors.New("unsupported YAML node kind")
}
