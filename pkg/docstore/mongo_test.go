package docstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/serial"
)

func connectTest(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("OBJGRAPH_MONGO_URI")
	if uri == "" {
		t.Skip("OBJGRAPH_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := "objgraph_test_" + uuid.NewString()[:8]
	s, err := Connect(ctx, uri, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		_ = s.client.Database(db).Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestMongoStoreSaveLoad(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()
	m := newMarshaller()

	tree, err := m.Export(ctx, newMesh())
	require.NoError(t, err)
	g, err := Flatten(tree)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "mesh", g))

	loaded, err := s.Load(ctx, "mesh")
	require.NoError(t, err)
	require.Equal(t, g.ID, loaded.ID)
	require.Len(t, loaded.Nodes, 3)

	assembled, err := Assemble(loaded)
	require.NoError(t, err)
	got, err := serial.ImportAs[*Socket](ctx, m, assembled)
	require.NoError(t, err)
	require.Same(t, got, got.Peers[1].Peers[0])

	names, err := s.Names(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"mesh"}, names)
}

func TestMongoStoreReplace(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	first, err := Flatten([]any{map[string]any{"v": int64(1)}})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "g", first))

	second, err := Flatten(map[string]any{"v": int64(2)})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "g", second))

	n, err := s.nodes.CountDocuments(ctx, map[string]any{"graph": first.ID})
	require.NoError(t, err)
	require.Zero(t, n, "old nodes should be removed")

	loaded, err := s.Load(ctx, "g")
	require.NoError(t, err)
	require.Equal(t, second.ID, loaded.ID)
}

func TestMongoStoreMissing(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "nope")
	require.True(t, errors.Is(err, ErrNotFound))
	require.True(t, errs.Is(err, errs.ErrCodeNotFound))
	require.NoError(t, s.Delete(ctx, "nope"))
}
