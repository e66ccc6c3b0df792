package testhelpers

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"

	"studyhub/internal/domain/repository"
	"studyhub/internal/platform/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an isolated in-memory SQLite database for tests with
// the store schema migrated. A single connection keeps writers serialised the
// way a real database's row locks would.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// SetupTestStore wraps SetupTestDB in the gorm-backed repositories.
func SetupTestStore(t *testing.T) *repository.Store {
	t.Helper()
	return repository.NewGormStore(SetupTestDB(t))
}

// SetupPostgresStore runs the pgx-backed repositories against the database in
// TEST_DATABASE_URL, inside a throwaway schema. Skips when the variable is unset.
func SetupPostgresStore(t *testing.T) *repository.Store {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	admin, err := database.Connect(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to connect to test postgres: %v", err)
	}
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("failed to create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		if _, err := admin.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Logf("failed to drop schema %s: %v", schema, err)
		}
		admin.Close()
	})

	db, err := database.Connect(ctx, withSearchPath(dsn, schema), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to connect to schema %s: %v", schema, err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("failed to migrate schema %s: %v", schema, err)
	}
	return repository.NewPgStore(db)
}

// withSearchPath adds a search_path runtime parameter to a URL or
// keyword/value connection string.
func withSearchPath(dsn, schema string) string {
	if u, err := url.Parse(dsn); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return dsn + " search_path=" + schema
}

// SetupMongoStore runs the Mongo repositories against a fresh database on
// the server in TEST_MONGO_URI. Skips when the variable is unset.
func SetupMongoStore(t *testing.T) *repository.Store {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	client, err := database.ConnectMongo(ctx, uri, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to connect to test mongo: %v", err)
	}
	db := client.Database("studyhub_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		if err := db.Drop(context.Background()); err != nil {
			t.Logf("failed to drop %s: %v", db.Name(), err)
		}
		client.Disconnect(context.Background())
	})

	store, err := repository.NewMongoStore(ctx, db)
	if err != nil {
		t.Fatalf("failed to prepare mongo store: %v", err)
	}
	return store
}

// SetupTestRedis creates a miniredis instance and a redis client for testing.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}
