package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inmemdb "github.com/trezcool/madrasa/storage/database/inmem"
	"github.com/trezcool/madrasa/testutil"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := testutil.NewLogger(t)

	conf := testutil.Config()
	store, err := Open(ctx, conf, logger)
	require.NoError(t, err)
	assert.IsType(t, &inmemdb.DB{}, store)
	assert.NoError(t, store.Close(ctx))

	conf.Database.Engine = "cassandra"
	_, err = Open(ctx, conf, logger)
	assert.EqualError(t, err, `unknown database engine "cassandra"`)
}
