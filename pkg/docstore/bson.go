package docstore

import (
	"go.mongodb.org/mongo-driver/bson"

	errs "github.com/matzehuels/objgraph/pkg/errors"
)

// normalize maps values decoded from BSON back to the attribute value set:
// embedded documents become links, arrays become []any, and 32-bit numbers
// are widened.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, float64, Link:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case bson.A:
		return []any(x), nil
	case []any:
		return x, nil
	case bson.D:
		return linkOf(x.Map())
	case bson.M:
		return linkOf(x)
	case map[string]any:
		return linkOf(x)
	}
	return nil, errs.New(errs.ErrCodeInvalidFormat, "unexpected stored value %T", v)
}

func linkOf(m map[string]any) (any, error) {
	ref, ok := m["ref"].(string)
	if !ok || len(m) != 1 {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "embedded document is not a node link")
	}
	return Link{Ref: ref}, nil
}
