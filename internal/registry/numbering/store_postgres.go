package numbering

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	txcontext "chancery/pkg/platform/tx"
)

// PostgresCounterStore persists counters in the number_counters table. The
// insert-or-increment is a single upsert statement, so Postgres row locking
// serializes concurrent allocations for the same scope while distinct scopes
// stay parallel. When the caller carries a transaction in context the
// allocation joins it, which is how document creation burns a number and
// persists the record in one unit of work.
type PostgresCounterStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresCounterStore {
	return &PostgresCounterStore{db: db}
}

type dbQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresCounterStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresCounterStore) NextValue(ctx context.Context, scope Scope) (int, error) {
	query := `
		INSERT INTO number_counters (org_id, document_class, year, current_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (org_id, document_class, year)
		DO UPDATE SET current_value = number_counters.current_value + 1
		RETURNING current_value
	`
	var value int
	err := s.querier(ctx).QueryRowContext(ctx, query,
		uuid.UUID(scope.OrgID),
		scope.Class.String(),
		scope.Year,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment number counter: %w", err)
	}
	return value, nil
}
