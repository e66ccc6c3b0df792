package bootstrap

import (
	"context"
	"fmt"
	"studyhub/internal/domain/repository"
	"studyhub/internal/platform/config"
	"studyhub/internal/platform/database"

	"go.uber.org/zap"
)

// OpenStore connects the backend selected by STORE_DRIVER and prepares its
// schema.
func OpenStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*repository.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Connect(ctx, cfg.DBConnStr, zl)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewPgStore(db), func() { db.Close() }, nil

	case config.StoreDriverGormPostgres, config.StoreDriverSQLite:
		dsn := cfg.DBConnStr
		if cfg.StoreDriver == config.StoreDriverSQLite {
			dsn = cfg.SQLitePath
		}
		db, err := database.OpenGorm(cfg.StoreDriver, dsn, zl)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		if err := repository.AutoMigrate(db); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("auto-migrate: %w", err)
		}
		return repository.NewGormStore(db), func() { sqlDB.Close() }, nil

	case config.StoreDriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI, zl)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewMongoStore(ctx, client.Database(cfg.MongoDB))
		if err != nil {
			client.Disconnect(context.Background())
			return nil, nil, err
		}
		return store, func() { client.Disconnect(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
