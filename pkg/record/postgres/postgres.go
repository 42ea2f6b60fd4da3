// Package postgres provides a PostgreSQL implementation of record.Store.
// It uses pgx/v5 for connection pooling and JSONB for record fields.
//
// Rows are partitioned by tenant_id. A query loads the tenant's rows in
// insertion order and runs the shared record.Apply pipeline, so results
// match the in-memory store exactly.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kweidner/pforte/pkg/record"
)

// Store is a PostgreSQL-backed record.Store.
type Store struct {
	pool         *pgxpool.Pool
	searchFields []string
}

// Ensure Store implements record.Store at compile time.
var _ record.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	searchFields := cfg.SearchFields
	if len(searchFields) == 0 {
		searchFields = record.DefaultSearchFields
	}

	s := &Store{pool: pool, searchFields: searchFields}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Insert appends a record to the tenant's collection. The per-tenant
// sequence is assigned under a transaction-scoped advisory lock so
// concurrent inserts to the same tenant serialize and ids stay unique and
// monotonic.
func (s *Store) Insert(ctx context.Context, tenantID string, fields map[string]string) (string, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshaling fields: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", unavailable("beginning transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", tenantID); err != nil {
		return "", unavailable("locking tenant sequence", err)
	}

	var seq int64
	err = tx.QueryRow(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE tenant_id = $1",
		tenantID,
	).Scan(&seq)
	if err != nil {
		return "", unavailable("assigning sequence", err)
	}

	id := record.FormatID(tenantID, seq)

	_, err = tx.Exec(ctx, `
		INSERT INTO records (tenant_id, seq, id, fields, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, tenantID, seq, id, fieldsJSON, time.Now().UTC())
	if err != nil {
		return "", unavailable("inserting record", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", unavailable("committing insert", err)
	}

	return id, nil
}

// Query loads the tenant's rows in insertion order and runs the shared
// pipeline over the loaded snapshot.
func (s *Store) Query(ctx context.Context, tenantID string, q record.Query) (*record.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, fields, created_at
		FROM records
		WHERE tenant_id = $1
		ORDER BY seq
	`, tenantID)
	if err != nil {
		return nil, unavailable("querying records", err)
	}
	defer rows.Close()

	var snapshot []record.Record
	for rows.Next() {
		var (
			r          record.Record
			fieldsJSON []byte
		)
		if err := rows.Scan(&r.ID, &fieldsJSON, &r.CreatedAt); err != nil {
			return nil, unavailable("scanning record", err)
		}
		if err := json.Unmarshal(fieldsJSON, &r.Fields); err != nil {
			return nil, fmt.Errorf("unmarshaling fields for %s: %w", r.ID, err)
		}
		r.TenantID = tenantID
		snapshot = append(snapshot, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("reading records", err)
	}

	return record.Apply(snapshot, q, s.searchFields), nil
}

// Delete removes a record from the tenant's collection.
func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	result, err := s.pool.Exec(ctx,
		"DELETE FROM records WHERE tenant_id = $1 AND id = $2",
		tenantID, id,
	)
	if err != nil {
		return unavailable("deleting record", err)
	}

	if result.RowsAffected() == 0 {
		return record.ErrNotFound
	}

	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// unavailable wraps a storage failure so callers can classify it with
// errors.Is(err, record.ErrUnavailable) without seeing pgx internals.
func unavailable(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return record.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", record.ErrUnavailable, op, err)
}
