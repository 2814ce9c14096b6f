package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "chancery/pkg/domain"
)

// PostgresDirectory reads actors from the actors table. One query per call
// using ANY instead of per-id lookups.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) ListActive(ctx context.Context, ids []id.ActorID) ([]id.ActorID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]uuid.UUID, 0, len(ids))
	for _, actorID := range ids {
		raw = append(raw, uuid.UUID(actorID))
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id FROM actors WHERE id = ANY($1) AND active`,
		pq.Array(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("select active actors: %w", err)
	}
	defer rows.Close()

	var active []id.ActorID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan actor id: %w", err)
		}
		active = append(active, id.ActorID(u))
	}
	return active, rows.Err()
}
