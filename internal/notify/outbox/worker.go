package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 100
)

// Worker drains the outbox table into Kafka. Entries are deleted only after
// the produce succeeds, so delivery is at-least-once; consumers dedupe on the
// payload id.
type Worker struct {
	db           *sql.DB
	client       *kgo.Client
	topic        string
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
}

func NewWorker(db *sql.DB, client *kgo.Client, topic string, logger *slog.Logger) *Worker {
	return &Worker{
		db:           db,
		client:       client,
		topic:        topic,
		logger:       logger,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
	}
}

// Run polls until the context is cancelled. Publish failures are logged and
// retried on the next tick; they never propagate.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.WarnContext(ctx, "notification outbox drain failed",
					"error", err,
				)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	rows, err := w.db.QueryContext(ctx, `
		SELECT id, recipient_id, payload
		FROM notification_outbox
		ORDER BY created_at
		LIMIT $1
	`, w.batchSize)
	if err != nil {
		return fmt.Errorf("select outbox batch: %w", err)
	}
	defer rows.Close()

	type entry struct {
		id        uuid.UUID
		recipient uuid.UUID
		payload   []byte
	}
	var batch []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.recipient, &e.payload); err != nil {
			return fmt.Errorf("scan outbox entry: %w", err)
		}
		batch = append(batch, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range batch {
		record := &kgo.Record{
			Topic: w.topic,
			Key:   []byte(e.recipient.String()),
			Value: e.payload,
		}
		if err := w.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("produce notification: %w", err)
		}
		if _, err := w.db.ExecContext(ctx,
			`DELETE FROM notification_outbox WHERE id = $1`, e.id,
		); err != nil {
			return fmt.Errorf("delete published outbox entry: %w", err)
		}
	}
	return nil
}
