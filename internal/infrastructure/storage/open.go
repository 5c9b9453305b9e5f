package storage

import (
	"context"
	"fmt"

	"JobsScanner/internal/ports"
)

// DriverRedis selects the Redis backed store.
const DriverRedis = "redis"

// Open builds the configured store and creates its schema.
func Open(ctx context.Context, driver, dsn string) (ports.JobStore, error) {
	var (
		store ports.JobStore
		err   error
	)

	switch driver {
	case DriverSQLite, DriverPostgres:
		store, err = OpenSQL(ctx, driver, dsn)
	case DriverRedis:
		client, cErr := NewRedisClient(ctx, dsn)
		if cErr != nil {
			return nil, cErr
		}
		store = NewRedisRepository(client, "")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
