package step

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chancery/internal/registry/models"
	id "chancery/pkg/domain"
	txcontext "chancery/pkg/platform/tx"
)

// PostgresLedger persists steps in the workflow_steps table.
//
// AppendFirstSave takes a row lock on the owning document and re-checks the
// denormalized has_ledger_entries flag inside that transaction, so two racing
// first saves serialize: the second one sees the flag set and appends nothing.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (l *PostgresLedger) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return l.db
}

func (l *PostgresLedger) AppendFirstSave(ctx context.Context, docID id.DocumentID, steps []models.WorkflowStep) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin first-save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var hasEntries bool
	err = tx.QueryRowContext(ctx,
		`SELECT has_ledger_entries FROM documents WHERE id = $1 FOR UPDATE`,
		uuid.UUID(docID),
	).Scan(&hasEntries)
	if err != nil {
		return false, fmt.Errorf("lock document for first save: %w", err)
	}
	if hasEntries {
		// A concurrent first save won the race; commit the no-op so the
		// lock releases cleanly.
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit first-save no-op: %w", err)
		}
		return false, nil
	}

	for _, step := range steps {
		if err := insertStep(ctx, tx, step); err != nil {
			return false, err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET has_ledger_entries = TRUE WHERE id = $1`,
		uuid.UUID(docID),
	); err != nil {
		return false, fmt.Errorf("set ledger flag: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit first save: %w", err)
	}
	return true, nil
}

func (l *PostgresLedger) Append(ctx context.Context, step models.WorkflowStep) error {
	return insertStep(ctx, l.execer(ctx), step)
}

func insertStep(ctx context.Context, ex dbExecutor, step models.WorkflowStep) error {
	query := `
		INSERT INTO workflow_steps (
			id, document_id, parent_step_id, from_actor_id, to_actor_id,
			action, step_status, outcome, notes, is_expired, created_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := ex.ExecContext(ctx, query,
		uuid.UUID(step.ID),
		uuid.UUID(step.DocumentID),
		nullStepID(step.ParentStepID),
		uuid.UUID(step.FromActorID),
		nullActorID(step.ToActorID),
		string(step.Action),
		string(step.Status),
		nullOutcome(step.Outcome),
		step.Notes,
		step.IsExpired,
		step.CreatedAt,
		step.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow step: %w", err)
	}
	return nil
}

func (l *PostgresLedger) History(ctx context.Context, docID id.DocumentID) ([]models.WorkflowStep, error) {
	query := `
		SELECT id, document_id, parent_step_id, from_actor_id, to_actor_id,
		       action, step_status, outcome, notes, is_expired, created_at, completed_at
		FROM workflow_steps
		WHERE document_id = $1
		ORDER BY created_at, id
	`
	rows, err := l.execer(ctx).QueryContext(ctx, query, uuid.UUID(docID))
	if err != nil {
		return nil, fmt.Errorf("select workflow steps: %w", err)
	}
	defer rows.Close()

	var history []models.WorkflowStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, step)
	}
	return history, rows.Err()
}

func (l *PostgresLedger) ExpirePending(ctx context.Context, docID id.DocumentID, _ time.Time) (int, error) {
	res, err := l.execer(ctx).ExecContext(ctx, `
		UPDATE workflow_steps
		SET is_expired = TRUE
		WHERE document_id = $1 AND step_status = 'pending' AND NOT is_expired
	`, uuid.UUID(docID))
	if err != nil {
		return 0, fmt.Errorf("expire pending steps: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire pending rows affected: %w", err)
	}
	return int(affected), nil
}

func scanStep(rows *sql.Rows) (models.WorkflowStep, error) {
	var (
		step     models.WorkflowStep
		stepID   uuid.UUID
		docID    uuid.UUID
		parentID uuid.NullUUID
		from     uuid.UUID
		to       uuid.NullUUID
		action   string
		status   string
		outcome  sql.NullString
	)
	err := rows.Scan(
		&stepID,
		&docID,
		&parentID,
		&from,
		&to,
		&action,
		&status,
		&outcome,
		&step.Notes,
		&step.IsExpired,
		&step.CreatedAt,
		&step.CompletedAt,
	)
	if err != nil {
		return models.WorkflowStep{}, fmt.Errorf("scan workflow step: %w", err)
	}
	step.ID = id.StepID(stepID)
	step.DocumentID = id.DocumentID(docID)
	if parentID.Valid {
		p := id.StepID(parentID.UUID)
		step.ParentStepID = &p
	}
	step.FromActorID = id.ActorID(from)
	if to.Valid {
		a := id.ActorID(to.UUID)
		step.ToActorID = &a
	}
	step.Action = models.StepAction(action)
	step.Status = models.StepStatus(status)
	if outcome.Valid {
		o := models.ResolutionOutcome(outcome.String)
		step.Outcome = &o
	}
	return step, nil
}

func nullStepID(stepID *id.StepID) uuid.NullUUID {
	if stepID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*stepID), Valid: true}
}

func nullActorID(actorID *id.ActorID) uuid.NullUUID {
	if actorID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*actorID), Valid: true}
}

func nullOutcome(o *models.ResolutionOutcome) sql.NullString {
	if o == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*o), Valid: true}
}
