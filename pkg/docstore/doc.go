// Package docstore stores primitive trees as graphs of node documents.
//
// [Flatten] turns a tree into a [Graph]: every record becomes one [Node]
// and references between records become [Link] values, so shared and
// cyclic structure is stored once. The reserved `_class`, `_class_module`,
// `_class_namespace` and `_uid` keys are kept verbatim in [Node.Meta].
// [Assemble] does the inverse and returns a tree in which shared records are
// shared *serial.Record pointers again, ready for import.
//
// [MongoStore] keeps graphs in MongoDB, one document per node plus a header
// document per named graph:
//
//	ms, err := docstore.Connect(ctx, "mongodb://localhost:27017", "objgraph")
//	if err != nil {
//	    return err
//	}
//	defer ms.Close(ctx)
//
//	g, _ := docstore.Flatten(tree)
//	err = ms.Save(ctx, "scene", g)
package docstore
