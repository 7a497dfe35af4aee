package mongorepos_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/madrasa/storage"
	mongorepos "github.com/trezcool/madrasa/storage/database/mongodb"
	"github.com/trezcool/madrasa/storage/storetest"
)

// TestStore needs a MongoDB server, e.g. MADRASA_TEST_MONGO_URI=mongodb://localhost:27017
func TestStore(t *testing.T) {
	uri := os.Getenv("MADRASA_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MADRASA_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	storetest.Run(t, func(t *testing.T) storage.Store {
		store, err := mongorepos.Open(ctx, uri, "madrasa_test")
		require.NoError(t, err)
		require.NoError(t, store.Drop(ctx))
		require.NoError(t, store.Close(ctx))

		store, err = mongorepos.Open(ctx, uri, "madrasa_test")
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close(ctx) })
		return store
	})
}
