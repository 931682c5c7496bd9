//go:build integration

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	integrationDatabase = "yoga_portal_test"
	connectionTimeout   = 10 * time.Second
)

// mongoDatabase connects to MONGO_URI (default localhost) and drops the test
// database when the test ends.
func mongoDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err, "failed to connect to MongoDB")
	require.NoError(t, client.Ping(ctx, nil), "failed to ping MongoDB")

	db := client.Database(integrationDatabase)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("warning: failed to drop %s: %v", integrationDatabase, err)
		}
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("warning: failed to disconnect from MongoDB: %v", err)
		}
	})
	return db
}

func TestMongoStore(t *testing.T) {
	runStoreContract(t, NewMongoStore(mongoDatabase(t), "dev-1", 5*time.Second))
}

func TestMongoStore_DevicesAreIsolated(t *testing.T) {
	db := mongoDatabase(t)
	ctx := context.Background()
	a := NewMongoStore(db, "dev-a", 5*time.Second)
	b := NewMongoStore(db, "dev-b", 5*time.Second)

	require.NoError(t, a.Set(ctx, KeyLocation, []byte(`"geneva"`)))
	require.NoError(t, a.Set(ctx, KeyLocation, []byte(`"basel"`)))

	_, found, err := b.Get(ctx, KeyLocation)
	require.NoError(t, err)
	assert.False(t, found)

	v, found, err := a.Get(ctx, KeyLocation)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `"basel"`, string(v))

	count, err := db.Collection(CollectionName).CountDocuments(ctx, bson.M{"device_id": "dev-a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "upsert keeps one document per key")
}
