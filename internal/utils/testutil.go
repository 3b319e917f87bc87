package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	// Try the project root first (two levels up from this file), then the working directory.
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		_ = godotenv.Load()
	}
}

// SetupTestDB returns a freshly named database that is dropped when the test
// ends. MONGO_TEST_URI points at an existing server; otherwise a mongo:7
// container is started, and the test is skipped if Docker is unavailable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	ctx := context.Background()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		container, err := tcmongo.Run(ctx, "mongo:7")
		if err != nil {
			t.Skipf("MongoDB container unavailable: %v", err)
		}
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		uri, err = container.ConnectionString(ctx)
		require.NoError(t, err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")

	db := client.Database("banju_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

// SetupTestRedis returns a client on an empty Redis database. REDIS_TEST_ADDR
// points at an existing server; otherwise a redis:7 container is started.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	ctx := context.Background()

	opts := &redis.Options{Addr: os.Getenv("REDIS_TEST_ADDR"), DB: 15}
	if opts.Addr == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		container, err := tcredis.Run(ctx, "redis:7")
		if err != nil {
			t.Skipf("Redis container unavailable: %v", err)
		}
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		uri, err := container.ConnectionString(ctx)
		require.NoError(t, err)
		opts, err = redis.ParseURL(uri)
		require.NoError(t, err)
	}

	rdb := redis.NewClient(opts)
	require.NoError(t, rdb.FlushDB(ctx).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}
