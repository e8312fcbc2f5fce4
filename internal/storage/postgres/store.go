package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shareVault/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS vault_fields (
	vault_id   TEXT        NOT NULL,
	field      TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (vault_id, field)
)`

// Store provides Postgres persistence for the fields of one vault.
type Store struct {
	pool    *pgxpool.Pool
	vaultID string
}

func NewStore(ctx context.Context, dsn, vaultID string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if vaultID == "" {
		return nil, fmt.Errorf("vault id is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, vaultID: vaultID}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the vault_fields table if needed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Has(ctx context.Context, field storage.Field) (bool, error) {
	var exists bool
	row := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vault_fields WHERE vault_id=$1 AND field=$2)`,
		s.vaultID, string(field),
	)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) Get(ctx context.Context, field storage.Field) (string, error) {
	var value string
	row := s.pool.QueryRow(ctx,
		`SELECT value FROM vault_fields WHERE vault_id=$1 AND field=$2`,
		s.vaultID, string(field),
	)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *Store) Load(ctx context.Context) (storage.Fields, error) {
	return s.readFields(ctx, s.pool, false)
}

// Set upserts all entries in a single transaction.
func (s *Store) Set(ctx context.Context, entries ...storage.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return s.write(ctx, tx, entries)
	})
}

// Update holds a transaction-scoped advisory lock on the vault while fn runs,
// so concurrent updaters of the same vault queue behind each other even
// before any of its rows exist.
func (s *Store) Update(ctx context.Context, fn storage.UpdateFunc) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.vaultID); err != nil {
			return fmt.Errorf("lock vault: %w", err)
		}
		current, err := s.readFields(ctx, tx, true)
		if err != nil {
			return err
		}
		entries, err := fn(current)
		if err != nil {
			return err
		}
		return s.write(ctx, tx, entries)
	})
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *Store) readFields(ctx context.Context, q querier, forUpdate bool) (storage.Fields, error) {
	query := `SELECT field, value FROM vault_fields WHERE vault_id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query, s.vaultID)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	fields := make(storage.Fields)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fields[storage.Field(field)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read fields: %w", err)
	}
	return fields, nil
}

// write queues every entry in one batch. IfAbsent entries insert with
// ON CONFLICT DO NOTHING and fail the transaction when no row was created.
func (s *Store) write(ctx context.Context, tx pgx.Tx, entries []storage.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, entry := range entries {
		if entry.IfAbsent {
			batch.Queue(`
				INSERT INTO vault_fields (vault_id, field, value, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (vault_id, field) DO NOTHING
			`, s.vaultID, string(entry.Field), entry.Value)
			continue
		}
		batch.Queue(`
			INSERT INTO vault_fields (vault_id, field, value, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (vault_id, field)
			DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		`, s.vaultID, string(entry.Field), entry.Value)
	}

	br := tx.SendBatch(ctx, batch)
	for _, entry := range entries {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return err
		}
		if entry.IfAbsent && tag.RowsAffected() == 0 {
			br.Close()
			return storage.ErrExists
		}
	}
	return br.Close()
}
