// Package outbox implements the transactional-outbox Notifier. Notifications
// are written to the notification_outbox table and published to Kafka by the
// worker, so a Kafka outage can delay delivery but never fail a document
// update.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chancery/internal/notify"
	txcontext "chancery/pkg/platform/tx"
)

// payload is the JSON structure published to Kafka.
type payload struct {
	ID                 string `json:"id"`
	ActorID            string `json:"actor_id"`
	Title              string `json:"title"`
	Message            string `json:"message"`
	Link               string `json:"link,omitempty"`
	OriginatingActorID string `json:"originating_actor_id"`
	CreatedAt          string `json:"created_at"`
}

// Store implements notify.Notifier by appending to the outbox table. It
// honors a transaction carried in context.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Notify(ctx context.Context, n notify.Notification) error {
	now := time.Now()
	body, err := json.Marshal(payload{
		ID:                 uuid.NewString(),
		ActorID:            n.ActorID.String(),
		Title:              n.Title,
		Message:            n.Message,
		Link:               n.Link,
		OriginatingActorID: n.OriginatingActorID.String(),
		CreatedAt:          now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO notification_outbox (id, recipient_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), uuid.UUID(n.ActorID), body, now)
	if err != nil {
		return fmt.Errorf("insert notification outbox entry: %w", err)
	}
	return nil
}
