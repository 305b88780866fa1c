package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	errs "github.com/matzehuels/objgraph/pkg/errors"
)

// Collection names used by MongoStore.
const (
	GraphsCollection = "graphs"
	NodesCollection  = "nodes"
)

// ErrNotFound is returned when a named graph does not exist.
var ErrNotFound = errors.New("graph not found")

// MongoStore keeps named graphs in MongoDB.
type MongoStore struct {
	client *mongo.Client
	graphs *mongo.Collection
	nodes  *mongo.Collection
}

// Connect opens a MongoDB connection, checks it with a ping and ensures the
// node index exists.
func Connect(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "connect %s", uri)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "ping %s", uri)
	}

	db := client.Database(database)
	s := &MongoStore{
		client: client,
		graphs: db.Collection(GraphsCollection),
		nodes:  db.Collection(NodesCollection),
	}
	_, err = s.nodes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "graph", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "create node index")
	}
	return s, nil
}

// Save stores g under name, replacing any graph previously saved there.
// The new nodes are written before the header is switched, so a failed
// save leaves the previous graph readable.
func (s *MongoStore) Save(ctx context.Context, name string, g *Graph) error {
	if err := errs.ValidateKey(name); err != nil {
		return err
	}

	prev, err := s.header(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if len(g.Nodes) > 0 {
		docs := make([]any, len(g.Nodes))
		for i := range g.Nodes {
			docs[i] = g.Nodes[i]
		}
		if _, err := s.nodes.InsertMany(ctx, docs); err != nil {
			return errs.Wrap(errs.ErrCodeInternal, err, "insert nodes of %q", name)
		}
	}

	header := *g
	header.Name = name
	header.Count = len(g.Nodes)
	_, err = s.graphs.ReplaceOne(ctx, bson.M{"_id": name}, header, options.Replace().SetUpsert(true))
	if err != nil {
		_, _ = s.nodes.DeleteMany(ctx, bson.M{"graph": g.ID})
		return errs.Wrap(errs.ErrCodeInternal, err, "save graph %q", name)
	}

	if prev != nil && prev.ID != g.ID {
		if _, err := s.nodes.DeleteMany(ctx, bson.M{"graph": prev.ID}); err != nil {
			return errs.Wrap(errs.ErrCodeInternal, err, "remove old nodes of %q", name)
		}
	}
	return nil
}

// Load returns the graph stored under name with its nodes in Seq order.
func (s *MongoStore) Load(ctx context.Context, name string) (*Graph, error) {
	g, err := s.header(ctx, name)
	if err != nil {
		return nil, err
	}

	cur, err := s.nodes.Find(ctx, bson.M{"graph": g.ID},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "load nodes of %q", name)
	}
	if err := cur.All(ctx, &g.Nodes); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode nodes of %q", name)
	}
	if len(g.Nodes) != g.Count {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "graph %q has %d nodes, header says %d", name, len(g.Nodes), g.Count)
	}
	return g, nil
}

// Delete removes the graph stored under name. Deleting a missing graph is
// not an error.
func (s *MongoStore) Delete(ctx context.Context, name string) error {
	g, err := s.header(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := s.graphs.DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "delete graph %q", name)
	}
	if _, err := s.nodes.DeleteMany(ctx, bson.M{"graph": g.ID}); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "delete nodes of %q", name)
	}
	return nil
}

// Names lists the stored graph names in ascending order.
func (s *MongoStore) Names(ctx context.Context) ([]string, error) {
	cur, err := s.graphs.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "list graphs")
	}
	var rows []struct {
		Name string `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "list graphs")
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return names, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) header(ctx context.Context, name string) (*Graph, error) {
	var g Graph
	err := s.graphs.FindOne(ctx, bson.M{"_id": name}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.Wrap(errs.ErrCodeNotFound, ErrNotFound, "graph %q", name)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "load graph %q", name)
	}
	return &g, nil
}
