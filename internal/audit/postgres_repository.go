package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS audit_entries (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		actor_id    TEXT NOT NULL,
		actor_email TEXT NOT NULL DEFAULT '',
		action      TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id   TEXT NOT NULL,
		detail      TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the audit table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating audit schema: %w", err)
	}
	return nil
}

// Record inserts a new audit entry.
func (r *PostgresRepository) Record(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO audit_entries (actor_id, actor_email, action, target_type, target_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		e.ActorID,
		e.ActorEmail,
		e.Action,
		e.TargetType,
		e.TargetID,
		e.Detail,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// List retrieves up to limit entries, newest first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, actor_id, actor_email, action, target_type, target_id, detail, created_at
		FROM audit_entries
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(
			&e.ID, &e.ActorID, &e.ActorEmail, &e.Action,
			&e.TargetType, &e.TargetID, &e.Detail, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return entries, nil
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
