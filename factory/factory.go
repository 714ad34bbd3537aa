package factory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridian-crm/recordops"
	"github.com/meridian-crm/recordops/internal"
)

// NewRecordOperationsWithConfig creates a RecordOperations facade backed by
// Postgres. This is the primary way for external projects to obtain a
// working facade.
//
// Usage:
//
//	config := recordops.DefaultConfig()
//	ops, err := factory.NewRecordOperationsWithConfig(context.Background(), config, pool)
//	if err != nil {
//	    // handle error
//	}
//
// When config.Archive.Enabled is set, deleted records are additionally
// snapshotted to the configured S3 bucket.
func NewRecordOperationsWithConfig(ctx context.Context, config *recordops.Config, pool *pgxpool.Pool) (recordops.RecordOperations, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	exists, err := recordsTableExists(ctx, pool, config.Database.RecordsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("records table %q is missing in the database", config.Database.RecordsTable)
	}

	var store recordops.RecordStore = internal.NewPostgresRecordStore(
		pool,
		config.Database.RecordsTable,
		config.Bulk.MaxRecordsPerCall,
		recordops.SystemClock(),
	)

	if config.Archive.Enabled {
		if err := internal.ValidateArchiveConfig(config.Archive); err != nil {
			return nil, fmt.Errorf("invalid archive config: %w", err)
		}
		client, err := internal.NewArchiveClient(ctx, config.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to build archive client: %w", err)
		}
		store = internal.NewArchivingStore(store, client, config.Archive.Bucket, config.Archive.Prefix, recordops.SystemClock())
	}

	return internal.NewRecordOperations(store, recordops.SystemClock()), nil
}

// NewInMemoryRecordOperations creates a RecordOperations facade over an
// in-memory store. Useful for embedding and tests; the returned store
// exposes the backing state for inspection.
func NewInMemoryRecordOperations(clock recordops.Clock) (recordops.RecordOperations, *internal.MemoryRecordStore) {
	store := internal.NewMemoryRecordStore(recordops.DefaultConfig().Bulk.MaxRecordsPerCall)
	return internal.NewRecordOperations(store, clock), store
}

// NewPool builds a pgx connection pool from the database settings, verifying
// connectivity with a ping before returning it.
func NewPool(ctx context.Context, cfg recordops.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := internal.DatabaseDSN(cfg)
	if err := internal.PostgresHealthCheck(ctx, dsn, cfg.Timeout); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}
	return pool, nil
}

func recordsTableExists(ctx context.Context, pool *pgxpool.Pool, table string) (bool, error) {
	rows, err := pool.Query(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE';`)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return false, fmt.Errorf("failed to scan table name: %w", err)
		}
		if tableName == table {
			return true, nil
		}
	}
	return false, rows.Err()
}
